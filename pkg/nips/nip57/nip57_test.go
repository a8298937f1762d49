package nip57

import (
	"strings"
	"testing"

	"github.com/paul/notecache/internal/testutil"
	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZapRequest(t *testing.T) {
	sender := testutil.MustGenerateKeyPair()
	target := strings.Repeat("1", 64)
	author := strings.Repeat("a", 64)

	req := sender.Event(KindZapRequest, testutil.DefaultCreatedAt, "great post", []string{"e", target}, []string{"p", author})
	receipt := &event.Event{
		Kind: KindZap,
		Tags: [][]string{
			{"e", target},
			{"p", author},
			{"bolt11", "lnbc210n1pjexample"},
			{"description", req.String()},
		},
	}

	decoded, err := ZapRequest(receipt)
	require.NoError(t, err)
	assert.Equal(t, req.ID, decoded.ID)
	assert.NoError(t, decoded.CheckSignature())

	assert.Equal(t, []string{target}, ZappedIDs(receipt))
	assert.Equal(t, []string{author}, ZappedAuthors(receipt))
	assert.Equal(t, []string{target}, ZappedIDs(decoded))

	amount, err := Amount(receipt)
	require.NoError(t, err)
	assert.Equal(t, int64(21), amount)
}

func TestZapRequestErrors(t *testing.T) {
	_, err := ZapRequest(&event.Event{Kind: KindZap})
	assert.ErrorIs(t, err, ErrNoZapRequest)

	_, err = ZapRequest(&event.Event{Kind: KindZap, Tags: [][]string{{"description", "{"}}})
	assert.Error(t, err)

	_, err = ZapRequest(&event.Event{Kind: KindZap, Tags: [][]string{{"description", `{"kind":1}`}}})
	assert.Error(t, err)

	_, err = ZapRequest(&event.Event{Kind: 1})
	assert.Error(t, err)
}

func TestInvoiceAmount(t *testing.T) {
	tests := []struct {
		invoice  string
		expected int64
		wantErr  bool
	}{
		{invoice: "lnbc1m1pexample", expected: 100000},
		{invoice: "lnbc25u1pexample", expected: 2500},
		{invoice: "lnbc10n1pexample", expected: 1},
		{invoice: "lnbc50000p1pexample", expected: 5},
		{invoice: "lnbc1", expected: 100000000},
		{invoice: "not an invoice", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.invoice, func(t *testing.T) {
			amount, err := InvoiceAmount(tt.invoice)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, amount)
		})
	}
}
