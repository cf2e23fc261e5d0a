package service

import (
	"fmt"
	"strings"

	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/notify"
)

const signature = "\n\nRegards,\nGrocerycart Team"

func stockAlertMessage(to string, s models.StockSignal) notify.Message {
	if s.Kind == models.SignalOutOfStock {
		return notify.Message{
			To:      to,
			Subject: fmt.Sprintf("Urgent: Product Out of Stock - %s", s.Name),
			Body:    fmt.Sprintf("Product %q (%s) is now out of stock. Please restock it soon.", s.Name, s.ProductID),
		}
	}
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Low Stock Alert: Product %s", s.Name),
		Body: fmt.Sprintf("Stock for %q is low: %d units remaining (threshold %d).",
			s.Name, s.Stock, s.Threshold),
	}
}

func placedMessage(to, name, orderID string) notify.Message {
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Order Confirmation #%s", orderID),
		Body:    fmt.Sprintf("Thank you for your order, %s! Your order ID is %s.", name, orderID),
	}
}

func paidMessage(to, orderID string) notify.Message {
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Order Confirmation #%s", orderID),
		Body:    fmt.Sprintf("Thank you for your order! Your order ID is %s.", orderID),
	}
}

func cancelledMessage(to, name, orderID string) notify.Message {
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Your Grocerycart Order #%s Has Been Cancelled", orderID),
		Body:    fmt.Sprintf("Dear %s,\n\nYour order #%s has been successfully cancelled.", name, orderID) + signature,
	}
}

// sellerCancelledMessage tells the seller who cancelled an order: the customer or the seller.
func sellerCancelledMessage(to, name, email, orderID string, bySeller bool) notify.Message {
	if bySeller {
		return notify.Message{
			To:      to,
			Subject: fmt.Sprintf("Order #%s Cancelled by Seller", orderID),
			Body:    fmt.Sprintf("Order ID: %s of %s (%s) has been cancelled by the seller.", orderID, name, email),
		}
	}
	return notify.Message{
		To:      to,
		Subject: fmt.Sprintf("Order #%s Cancelled by User", orderID),
		Body:    fmt.Sprintf("Order ID: %s has been cancelled by user %s (%s).", orderID, name, email),
	}
}

func statusMessage(to, name string, order *models.Order) notify.Message {
	var subject string
	var body strings.Builder

	switch order.Status {
	case models.OrderStatusShipped:
		subject = fmt.Sprintf("Your Grocerycart Order #%s Has Been Shipped!", order.ID)
		fmt.Fprintf(&body, "Dear %s,\n\nYour order #%s has been shipped and is on its way!", name, order.ID)
		if sh := order.Shipping; sh != nil && sh.TrackingNumber != "" && sh.Carrier != "" {
			fmt.Fprintf(&body, "\n\nTracking Number: %s with %s.", sh.TrackingNumber, sh.Carrier)
			if sh.TrackingURL != "" {
				fmt.Fprintf(&body, "\nTrack it here: %s", sh.TrackingURL)
			}
		}
	case models.OrderStatusDelivered:
		subject = fmt.Sprintf("Your Grocerycart Order #%s Has Been Delivered!", order.ID)
		fmt.Fprintf(&body, "Dear %s,\n\nGood news! Your order #%s has been delivered successfully. We hope you enjoy your purchase!", name, order.ID)
	case models.OrderStatusCancelled:
		subject = fmt.Sprintf("Your Grocerycart Order #%s Status Update: Cancelled", order.ID)
		fmt.Fprintf(&body, "Dear %s,\n\nYour order #%s has been cancelled. If this was unexpected, please contact us.", name, order.ID)
	default:
		subject = fmt.Sprintf("Your Grocerycart Order #%s Status Update", order.ID)
		fmt.Fprintf(&body, "Dear %s,\n\nYour order #%s status has been updated to: %s.", name, order.ID, order.Status)
	}
	body.WriteString(signature)

	return notify.Message{To: to, Subject: subject, Body: body.String()}
}
