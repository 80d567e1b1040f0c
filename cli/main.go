// Package main provides a terminal softphone that plays the voice gateway
// role against the call synchronizer.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/protocol"
)

// Client represents a gateway connection carrying one call.
type Client struct {
	conn          *websocket.Conn
	callSessionID string
	done          chan struct{}
	ended         chan string

	writeMu sync.Mutex

	mu       sync.Mutex
	promptID string // ask waiting for caller input
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn:  conn,
		done:  make(chan struct{}),
		ended: make(chan string, 1),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

func (c *Client) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func base(msgType, callSessionID, promptID string) protocol.BaseMessage {
	return protocol.BaseMessage{
		Type:          msgType,
		Ts:            time.Now().UnixMilli(),
		CallSessionID: callSessionID,
		PromptID:      promptID,
	}
}

// Answer announces the call and waits for call_accepted.
func (c *Client) Answer(callerID, callID, callSessionID string) error {
	msg := protocol.CallAnsweredMessage{
		BaseMessage: base(protocol.TypeCallAnswered, callSessionID, ""),
		CallerID:    callerID,
		CallID:      callID,
	}
	if err := c.send(msg); err != nil {
		return fmt.Errorf("write call_answered: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read call_accepted: %w", err)
	}

	var b protocol.BaseMessage
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("unmarshal call_accepted: %w", err)
	}
	if b.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		json.Unmarshal(data, &errMsg)
		return fmt.Errorf("call rejected: %s - %s", errMsg.Code, errMsg.Message)
	}
	if b.Type != protocol.TypeCallAccepted {
		return fmt.Errorf("expected call_accepted, got: %s", b.Type)
	}

	c.callSessionID = b.CallSessionID
	return nil
}

// Reply answers the ask currently waiting for input. It reports false when
// no ask is active.
func (c *Client) Reply(name, value string) (bool, error) {
	c.mu.Lock()
	promptID := c.promptID
	c.promptID = ""
	c.mu.Unlock()
	if promptID == "" {
		return false, nil
	}

	msg := protocol.AskResultMessage{
		BaseMessage: base(protocol.TypeAskResult, c.callSessionID, promptID),
		Name:        name,
		Value:       value,
	}
	return true, c.send(msg)
}

// Hangup tells the service the caller left.
func (c *Client) Hangup() error {
	return c.send(protocol.HangupMessage{BaseMessage: base(protocol.TypeHangup, c.callSessionID, "")})
}

// ReadMessages plays server frames to the terminal until the call ends.
func (c *Client) ReadMessages() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			c.ended <- ""
			return
		}

		var b protocol.BaseMessage
		if err := json.Unmarshal(data, &b); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}

		switch b.Type {
		case protocol.TypeSay:
			var msg protocol.SayMessage
			json.Unmarshal(data, &msg)
			fmt.Printf("\n[%s] %s\n", msg.Voice, msg.Text)
			if err := c.send(protocol.SayDoneMessage{BaseMessage: base(protocol.TypeSayDone, c.callSessionID, msg.PromptID)}); err != nil {
				log.Printf("Send error: %v", err)
			}

		case protocol.TypeAsk:
			var msg protocol.AskMessage
			json.Unmarshal(data, &msg)
			c.mu.Lock()
			c.promptID = msg.PromptID
			c.mu.Unlock()
			fmt.Printf("\n[%s] %s\n", msg.Voice, msg.Text)
			fmt.Printf("  (%s %v, %d attempts of %s; digit to answer, t for timeout)\n> ",
				msg.Mode, msg.Choices, msg.Attempts, time.Duration(msg.TimeoutMs)*time.Millisecond)

		case protocol.TypeCancel:
			c.mu.Lock()
			if c.promptID == b.PromptID {
				c.promptID = ""
				fmt.Println("\n  (prompt interrupted)")
			}
			c.mu.Unlock()

		case protocol.TypeCallEnded:
			var msg protocol.CallEndedMessage
			json.Unmarshal(data, &msg)
			c.ended <- msg.Outcome
			return

		case protocol.TypeError:
			var msg protocol.ErrorMessage
			json.Unmarshal(data, &msg)
			fmt.Printf("\n[error] %s: %s\n", msg.Code, msg.Message)

		default:
			fmt.Printf("\n[%s] %s\n", b.Type, string(data))
		}
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:8081/v1/gateway", "gateway WebSocket address")
	callerID := flag.String("caller-id", "7205551234", "caller ID to announce")
	callID := flag.String("call-id", "", "call ID (generated when empty)")
	callSessionID := flag.String("call-session-id", "", "call session ID (assigned by the server when empty)")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if *callID == "" {
		*callID = "call_" + uuid.New().String()[:8]
	}

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()

	if err := client.Answer(*callerID, *callID, *callSessionID); err != nil {
		log.Fatalf("Answer failed: %v", err)
	}

	fmt.Printf("Call answered: %s\n", client.callSessionID)
	fmt.Println("Type a digit and press Enter to answer a prompt.")
	fmt.Println("Commands: t (timeout), /hangup, /quit")

	go client.ReadMessages()

	// Handle Ctrl+C
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted, hanging up")
			client.Hangup()
			return

		case outcome := <-client.ended:
			if outcome != "" {
				fmt.Printf("\nCall ended: %s\n", outcome)
			}
			return

		case input, ok := <-lines:
			if !ok {
				client.Hangup()
				return
			}
			switch {
			case input == "":
				continue
			case input == "/quit":
				fmt.Println("Bye!")
				return
			case input == "/hangup":
				if err := client.Hangup(); err != nil {
					log.Printf("Send error: %v", err)
				}
				continue
			}

			name, value := "choice", input
			if input == "t" {
				name, value = "timeout", ""
			} else if len(input) != 1 || input[0] < '0' || input[0] > '9' {
				name = "nomatch"
			}
			sent, err := client.Reply(name, value)
			if err != nil {
				log.Printf("Send error: %v", err)
				continue
			}
			if !sent {
				fmt.Println("  (no prompt is waiting for input)")
			}
		}
	}
}
