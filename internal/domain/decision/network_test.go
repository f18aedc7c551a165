package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

func stripeRow(id int64) *capability.NetworkRow {
	return &capability.NetworkRow{
		ID:      id,
		Access:  true,
		Hosts:   []string{"*.stripe.com"},
		Methods: []string{"GET", "POST"},
		Schemes: []string{"https"},
		Paths:   []string{"/v1/*"},
	}
}

func TestNetworkChecker(t *testing.T) {
	checker := NewNetworkChecker(snapshotOf(capability.TypeNetwork, entryOf(1, stripeRow(1))), always)
	ctx := context.Background()

	tests := []struct {
		name   string
		req    capability.NetworkRequest
		want   bool
		reason capability.Reason
	}{
		{"allowed call", capability.NetworkRequest{Method: "POST", URL: "https://api.stripe.com/v1/charges"}, true, ""},
		{"method denied", capability.NetworkRequest{Method: "DELETE", URL: "https://api.stripe.com/v1/charges"}, false, capability.ReasonNoMatch},
		{"scheme denied", capability.NetworkRequest{Method: "GET", URL: "http://api.stripe.com/v1/charges"}, false, capability.ReasonNoMatch},
		{"apex not covered by wildcard", capability.NetworkRequest{Method: "GET", URL: "https://stripe.com/v1/charges"}, false, capability.ReasonNoMatch},
		{"host denied", capability.NetworkRequest{Method: "GET", URL: "https://api.evil.com/v1/charges"}, false, capability.ReasonNoMatch},
		{"path denied", capability.NetworkRequest{Method: "GET", URL: "https://api.stripe.com/v2/charges"}, false, capability.ReasonNoMatch},
		{"unparseable url", capability.NetworkRequest{Method: "GET", URL: "not a url"}, false, capability.ReasonBadRequestType},
		{"missing scheme", capability.NetworkRequest{Method: "GET", URL: "api.stripe.com/v1"}, false, capability.ReasonBadRequestType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := checker.Check(ctx, "test-plugin", tt.req, nil)
			assert.Equal(t, tt.want, res.Allowed)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, res.Reason)
			}
		})
	}
}

func TestNetworkChecker_Ports(t *testing.T) {
	row := stripeRow(1)
	row.Ports = []int{443}
	checker := NewNetworkChecker(snapshotOf(capability.TypeNetwork, entryOf(1, row)), always)
	ctx := context.Background()

	// Default https port is 443.
	res := checker.Check(ctx, "test-plugin", capability.NetworkRequest{
		Method: "GET", URL: "https://api.stripe.com/v1/charges",
	}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.NetworkRequest{
		Method: "GET", URL: "https://api.stripe.com:8443/v1/charges",
	}, nil)
	assert.False(t, res.Allowed)
}

func TestNetworkChecker_Headers(t *testing.T) {
	row := stripeRow(1)
	row.HeadersAllowed = []string{"Authorization", "Content-Type"}
	checker := NewNetworkChecker(snapshotOf(capability.TypeNetwork, entryOf(1, row)), always)
	ctx := context.Background()

	res := checker.Check(ctx, "test-plugin", capability.NetworkRequest{
		Method:  "POST",
		URL:     "https://api.stripe.com/v1/charges",
		Headers: map[string]string{"authorization": "Bearer x"},
	}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.NetworkRequest{
		Method:  "POST",
		URL:     "https://api.stripe.com/v1/charges",
		Headers: map[string]string{"X-Forwarded-For": "10.0.0.1"},
	}, nil)
	assert.False(t, res.Allowed)
}

func TestNetworkChecker_IPLiterals(t *testing.T) {
	row := &capability.NetworkRow{
		ID:         1,
		Access:     true,
		IPsAllowed: []string{"10.0.0.5"},
	}
	checker := NewNetworkChecker(snapshotOf(capability.TypeNetwork, entryOf(1, row)), always)
	ctx := context.Background()

	res := checker.Check(ctx, "test-plugin", capability.NetworkRequest{
		Method: "GET", URL: "http://10.0.0.5/status",
	}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.NetworkRequest{
		Method: "GET", URL: "http://10.0.0.6/status",
	}, nil)
	assert.False(t, res.Allowed)
}

func TestNetworkChecker_NoCapabilities(t *testing.T) {
	checker := NewNetworkChecker(emptySnapshot(), always)

	res := checker.Check(context.Background(), "test-plugin", capability.NetworkRequest{
		Method: "GET", URL: "https://api.stripe.com/v1/charges",
	}, nil)

	assert.Equal(t, capability.ReasonNoCapabilities, res.Reason)
}
