package payment_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Advanced-computer-lab-2024/Explorease-sub002/internal/payment"
)

const testSecret = "whsec_test_secret"

func TestVerifySignature(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_123"}}}`)

	testCases := []struct {
		name        string
		header      string
		body        []byte
		secret      string
		at          time.Time
		expectError bool
	}{
		{
			name:   "valid signature passes",
			header: payment.Sign(testSecret, now, body),
			body:   body,
			secret: testSecret,
			at:     now,
		},
		{
			name:   "signature from the recent past passes",
			header: payment.Sign(testSecret, now.Add(-payment.SignatureTolerance+time.Second), body),
			body:   body,
			secret: testSecret,
			at:     now,
		},
		{
			name:        "stale timestamp is rejected",
			header:      payment.Sign(testSecret, now.Add(-payment.SignatureTolerance-time.Minute), body),
			body:        body,
			secret:      testSecret,
			at:          now,
			expectError: true,
		},
		{
			name:        "tampered body is rejected",
			header:      payment.Sign(testSecret, now, body),
			body:        []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_999"}}}`),
			secret:      testSecret,
			at:          now,
			expectError: true,
		},
		{
			name:        "wrong secret is rejected",
			header:      payment.Sign("whsec_other", now, body),
			body:        body,
			secret:      testSecret,
			at:          now,
			expectError: true,
		},
		{
			name:        "garbage header is rejected",
			header:      "not-a-signature",
			body:        body,
			secret:      testSecret,
			at:          now,
			expectError: true,
		},
		{
			name:        "missing v1 component is rejected",
			header:      "t=1750000000",
			body:        body,
			secret:      testSecret,
			at:          now,
			expectError: true,
		},
		{
			name:        "empty header is rejected",
			header:      "",
			body:        body,
			secret:      testSecret,
			at:          now,
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := payment.VerifySignature(tc.secret, tc.header, tc.body, tc.at)
			if tc.expectError {
				assert.ErrorIs(t, err, payment.ErrInvalidSignature)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSignHeaderShape(t *testing.T) {
	now := time.Unix(1750000000, 0).UTC()
	header := payment.Sign(testSecret, now, []byte("payload"))
	assert.Contains(t, header, "t=1750000000,")
	assert.Contains(t, header, "v1=")
}
