package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/chaz8081/gostt-kbd/pkg/protocol"
	"github.com/chaz8081/gostt-kbd/pkg/status"
)

// ErrQueueFull is reported when a decrypted command is dropped because the sinks are behind.
var ErrQueueFull = errors.New("channel: dispatch queue full")

type job struct {
	kind     protocol.CommandKind
	payload  []byte
	sequence uint32
}

// receive decrypts and decodes a DataPacket and queues the command it carries.
func (c *Channel) receive(conn *connection, buf []byte) error {
	packet, err := protocol.DecodeDataPacket(buf)
	if err != nil {
		return fmt.Errorf("data packet: %w", err)
	}
	plaintext, err := c.session.Decrypt(packet.IV[:], packet.Tag[:], packet.EncryptedPayload)
	if err != nil {
		return err
	}
	c.lock.Lock()
	fresh := conn.window.Observe(packet.SequenceNumber)
	c.lock.Unlock()
	if !fresh {
		logger.Warning("repeated or stale sequence number %d", packet.SequenceNumber)
	}

	data, err := protocol.DecodeEncryptedData(plaintext)
	if err != nil {
		return fmt.Errorf("encrypted data: %w", err)
	}

	var next job
	next.sequence = packet.SequenceNumber
	next.kind = data.CommandKind
	if data.CommandKind == protocol.CommandText {
		if !data.HasKeyboardPayload {
			logger.Debug("[%d] text command without keyboard payload", packet.SequenceNumber)
			return nil
		}
		keyboard, err := protocol.DecodeKeyboardPacket(data.KeyboardPayload)
		if err != nil {
			return fmt.Errorf("keyboard packet: %w", err)
		}
		if int(keyboard.DeclaredLength) != len(keyboard.Message) {
			logger.Debug("[%d] declared length %d, message has %d bytes", packet.SequenceNumber, keyboard.DeclaredLength, len(keyboard.Message))
		}
		next.payload = keyboard.Message
	} else {
		next.payload = data.CommandPayload
	}

	// plaintext is owned by this call, so the payload can be queued without copying.
	select {
	case conn.queue <- next:
		logger.Debug("[%d] queued command %d (%d bytes)", next.sequence, next.kind, len(next.payload))
		return nil
	default:
		return ErrQueueFull
	}
}

// drain delivers queued commands to the sinks until the connection ends.
func (c *Channel) drain(conn *connection) {
	defer conn.wg.Done()
	for {
		select {
		case <-conn.ctx.Done():
			return
		case next := <-conn.queue:
			if err := c.deliver(conn.ctx, next); err != nil {
				if conn.ctx.Err() != nil {
					logger.Info("[%d] command aborted by disconnect", next.sequence)
					return
				}
				logger.Warning("[%d] command %d failed: %s", next.sequence, next.kind, err)
				c.indicator.SetStatus(status.Error)
			}
		}
	}
}

func (c *Channel) deliver(ctx context.Context, next job) error {
	if next.kind == protocol.CommandText {
		c.indicator.SetStatus(status.Typing)
		return c.text.TypeText(ctx, next.payload)
	}
	if c.commands == nil {
		return fmt.Errorf("no handler for command %d", next.kind)
	}
	return c.commands.HandleCommand(ctx, next.kind, next.payload)
}
