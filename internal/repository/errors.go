package repository

// SQLSTATE unique_violation
const pgErrUniqueViolationCode = "23505"
