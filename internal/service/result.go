package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Bonus explains how a reward was computed.
type Bonus struct {
	Base           int64   `json:"base"`
	TierMultiplier float64 `json:"tierMultiplier"`
	ShopBonus      float64 `json:"shopBonus"`
	SkillBonus     float64 `json:"skillBonus"`
	Bonus          int64   `json:"bonus"`
}

// Outcome is the successful result of a command.
type Outcome struct {
	Message      string           `json:"message"`
	Reward       int64            `json:"reward,omitempty"`
	Bonus        *Bonus           `json:"bonus,omitempty"`
	Drops        map[string]int64 `json:"drops,omitempty"`
	SideMessages []string         `json:"sideMessages,omitempty"`
	Data         any              `json:"data,omitempty"`
	Mentions     []string         `json:"mentions,omitempty"`
}

// Text joins the main message with any side messages.
func (o *Outcome) Text() string {
	if len(o.SideMessages) == 0 {
		return o.Message
	}
	return o.Message + "\n" + strings.Join(o.SideMessages, "\n")
}

// Result is the uniform reply handed to the dispatch layer.
type Result struct {
	OK       bool     `json:"ok"`
	Message  string   `json:"message"`
	Data     any      `json:"data,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
}

// RejectionData is attached to failed results.
type RejectionData struct {
	Reason       string `json:"reason"`
	RetryAfterMs int64  `json:"retryAfterMs,omitempty"`
	Required     int64  `json:"required,omitempty"`
	Available    int64  `json:"available,omitempty"`
}

// ToResult converts a service return into a Result. Domain rejections become
// OK=false results; any other error is returned unchanged.
func ToResult(out *Outcome, err error) (Result, error) {
	if err == nil {
		if out == nil {
			return Result{OK: true}, nil
		}
		data := out.Data
		if data == nil && (out.Reward != 0 || out.Bonus != nil || len(out.Drops) > 0) {
			data = out
		}
		return Result{OK: true, Message: out.Text(), Data: data, Mentions: out.Mentions}, nil
	}

	var ae *ActionError
	if errors.As(err, &ae) {
		return Result{
			OK:      false,
			Message: ae.Error(),
			Data: RejectionData{
				Reason:       ae.Kind.Error(),
				RetryAfterMs: ae.RetryAfter.Milliseconds(),
				Required:     ae.Required,
				Available:    ae.Available,
			},
		}, nil
	}
	for _, k := range domainErrors {
		if errors.Is(err, k) {
			return Result{OK: false, Message: err.Error(), Data: RejectionData{Reason: k.Error()}}, nil
		}
	}
	return Result{}, err
}

func coins(n int64) string {
	return humanize.Comma(n) + " moedas"
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "1s"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
