package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
)

// Notification is one NOTIFY payload received by a Listener
type Notification struct {
	Channel  string
	Payload  string
	Received time.Time
}

// Listener handles PostgreSQL LISTEN/NOTIFY on a dedicated connection
type Listener struct {
	conn          *pgx.Conn
	channel       string
	notifications chan Notification
	errors        chan error
	done          chan struct{}
}

// NewListener connects and starts listening on channel
func NewListener(ctx context.Context, connString string, channel string) (*Listener, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, errors.NewConnectionError("", 0,
			fmt.Sprintf("invalid connection configuration: %v", err),
			"Check your PostgreSQL connection string format")
	}
	config.RuntimeParams["application_name"] = applicationName

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, errors.NewConnectionError(config.Host, int(config.Port),
			fmt.Sprintf("failed to connect for LISTEN: %v", err),
			"Verify PostgreSQL is running and accessible with the provided connection string")
	}

	if _, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to execute LISTEN: %w", err)
	}

	listener := &Listener{
		conn:          conn,
		channel:       channel,
		notifications: make(chan Notification, 1000), // Buffered to avoid blocking
		errors:        make(chan error, 10),
		done:          make(chan struct{}),
	}

	go listener.receiveLoop(ctx)

	return listener, nil
}

// receiveLoop continuously receives notifications from PostgreSQL
func (l *Listener) receiveLoop(ctx context.Context) {
	defer close(l.notifications)
	defer close(l.errors)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		default:
			// Wait with a short timeout to allow checking done/ctx
			waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			n, err := l.conn.WaitForNotification(waitCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}

				if l.conn.IsClosed() {
					select {
					case l.errors <- fmt.Errorf("connection closed"):
					default:
					}
					return
				}

				// Timeout is expected, just continue
				if waitCtx.Err() == context.DeadlineExceeded {
					continue
				}

				select {
				case l.errors <- fmt.Errorf("notification error: %w", err):
				default:
				}
				continue
			}

			if n == nil || n.Channel != l.channel {
				continue
			}
			select {
			case l.notifications <- Notification{Channel: n.Channel, Payload: n.Payload, Received: time.Now()}:
			default:
				select {
				case l.errors <- fmt.Errorf("notification buffer full, dropping: %s", n.Payload):
				default:
				}
			}
		}
	}
}

// Notifications returns a channel that receives notifications. It is
// closed when the listener stops.
func (l *Listener) Notifications() <-chan Notification {
	return l.notifications
}

// Errors returns a channel that receives listener errors
func (l *Listener) Errors() <-chan error {
	return l.errors
}

// Close stops the listener and closes the connection. The receive loop
// must have stopped before the connection is used again, so Close waits
// for it.
func (l *Listener) Close(ctx context.Context) error {
	close(l.done)
	for range l.notifications {
	}

	if l.conn != nil && !l.conn.IsClosed() {
		_, _ = l.conn.Exec(ctx, "UNLISTEN "+pgx.Identifier{l.channel}.Sanitize())
		return l.conn.Close(ctx)
	}
	return nil
}

// Wait waits for the next notification with timeout
func (l *Listener) Wait(ctx context.Context, timeout time.Duration) (*Notification, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case n, ok := <-l.notifications:
		if !ok {
			return nil, fmt.Errorf("listener closed")
		}
		return &n, nil
	case <-timer.C:
		return nil, fmt.Errorf("timeout waiting for notification")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
