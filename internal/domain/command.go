package domain

// CommandKind is the small fixed vocabulary of inbound subscriber commands.
type CommandKind string

const (
	CommandSubscribe   CommandKind = "subscribe"
	CommandUnsubscribe CommandKind = "unsubscribe"
	CommandStatus      CommandKind = "status"
	CommandUnknown     CommandKind = "unknown"
)

// InboundCommand is one message polled from the notification channel. ID is
// stable across redeliveries of the same backlog and drives idempotency.
type InboundCommand struct {
	ID     string
	Sender string // recipient id to reply to
	Text   string
}

// DeliveryOutcome is the result of sending one message to one recipient.
type DeliveryOutcome struct {
	Recipient string
	Attempts  int
	Err       error
}

// DeliveryReport summarises a delivery run across all subscribers.
type DeliveryReport struct {
	Outcomes []DeliveryOutcome
}

// Delivered returns the number of successful sends.
func (r DeliveryReport) Delivered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of failed sends.
func (r DeliveryReport) Failed() int {
	return len(r.Outcomes) - r.Delivered()
}
