// Package subscriber implements a publish/subscribe client for RESP servers.
//
// The package is organised leaves first:
//
//   - message.go: the Message value delivered to the application
//   - frame.go: the decoded reply variants and their classification
//   - router.go: the Router, which owns the connection and its reader goroutine
//   - subscriber.go: the Subscriber facade (topic prefix, domain errors)
//
// One reader goroutine per connection is the only producer for three
// channels: command confirmations, published messages and pongs.
// Subscribe-family confirmations are correlated to commands by position,
// which the server guarantees by replying in order. Command issuance is
// serialized so positions never interleave.
//
// A typical consumer:
//
//	sub, err := subscriber.New(ctx, "127.0.0.1", 6379, subscriber.WithPrefix("app:"))
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
//
//	if err := sub.Subscribe(ctx, "orders"); err != nil {
//		return err
//	}
//	for msg := range sub.Channel() {
//		fmt.Println(msg.Topic, msg.Payload)
//	}
//
// The message channel is closed when the connection ends, whether the
// peer went away or Close was called.
package subscriber
