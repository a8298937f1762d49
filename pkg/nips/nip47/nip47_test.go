package nip47

import (
	"strings"
	"testing"

	"github.com/paul/notecache/pkg/event"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	req := strings.Repeat("1", 64)

	id, ok := RequestID(&event.Event{Kind: KindPaymentResponse, Tags: [][]string{{"p", "x"}, {"e", req}}})
	assert.True(t, ok)
	assert.Equal(t, req, id)

	_, ok = RequestID(&event.Event{Kind: KindPaymentResponse, Tags: [][]string{{"e", "bad"}}})
	assert.False(t, ok)

	_, ok = RequestID(&event.Event{Kind: KindPaymentRequest, Tags: [][]string{{"e", req}}})
	assert.False(t, ok)
}

func TestWalletService(t *testing.T) {
	wallet := strings.Repeat("a", 64)

	pk, ok := WalletService(&event.Event{Kind: KindPaymentRequest, Tags: [][]string{{"p", wallet}}})
	assert.True(t, ok)
	assert.Equal(t, wallet, pk)

	_, ok = WalletService(&event.Event{Kind: KindPaymentRequest})
	assert.False(t, ok)
}
