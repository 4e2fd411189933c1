package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/summitrails/tour-booking-api/internal/core/domain"
	"github.com/summitrails/tour-booking-api/internal/core/ports"
)

// signatureTolerance bounds how old a signed timestamp may be. Replaying a
// captured delivery outside this window fails verification even with a valid
// MAC.
const signatureTolerance = 5 * time.Minute

// webhookEnvelope is the provider's wire shape for a delivery.
type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object ports.CheckoutSession `json:"object"`
	} `json:"data"`
}

// ConstructEvent authenticates a webhook delivery and decodes it. The MAC is
// computed over "<timestamp>.<raw payload>" with the shared webhook secret —
// the exact bytes received, never a re-serialized copy. The signature header
// has the form "t=<unix>,v1=<hex mac>[,v1=<hex mac>...]".
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (*ports.CheckoutEvent, error) {
	return VerifyEvent(payload, sigHeader, c.cfg.WebhookSecret, time.Now())
}

// VerifyEvent is the pure verification core, split out so it can be tested
// with a fixed clock.
func VerifyEvent(payload []byte, sigHeader, secret string, now time.Time) (*ports.CheckoutEvent, error) {
	ts, macs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	issued := time.Unix(ts, 0)
	if now.Sub(issued) > signatureTolerance || issued.Sub(now) > signatureTolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", domain.ErrSignatureInvalid)
	}

	expected := computeSignature(ts, payload, secret)
	valid := false
	for _, mac := range macs {
		if hmac.Equal([]byte(mac), []byte(expected)) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("%w: no matching signature", domain.ErrSignatureInvalid)
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &ports.CheckoutEvent{
		ID:      envelope.ID,
		Type:    envelope.Type,
		Session: envelope.Data.Object,
	}, nil
}

// SignPayload produces a valid signature header for payload at the given
// time. Used by tests and local tooling to fabricate deliveries.
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, computeSignature(ts, payload, secret))
}

func computeSignature(ts int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (ts int64, macs []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("missing signature header")
	}
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("malformed timestamp %q", v)
			}
		case "v1":
			macs = append(macs, v)
		}
	}
	if ts == 0 || len(macs) == 0 {
		return 0, nil, fmt.Errorf("signature header missing t or v1")
	}
	return ts, macs, nil
}
