package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

func TestModuleChecker(t *testing.T) {
	row := &capability.ModuleRow{
		ID:     1,
		Call:   true,
		Module: "Vendor\\Billing\\InvoiceService",
		Alias:  "billing",
		APIs:   []string{"createInvoice", "voidInvoice"},
	}
	checker := NewModuleChecker(snapshotOf(capability.TypeModule, entryOf(1, row)), always)
	ctx := context.Background()

	tests := []struct {
		name string
		req  capability.ModuleRequest
		want bool
	}{
		{"full module name", capability.ModuleRequest{Module: "Vendor\\Billing\\InvoiceService"}, true},
		{"alias", capability.ModuleRequest{Module: "billing"}, true},
		{"alias case-insensitive", capability.ModuleRequest{Module: "Billing"}, true},
		{"declared api", capability.ModuleRequest{Module: "billing", API: "createInvoice"}, true},
		{"undeclared api", capability.ModuleRequest{Module: "billing", API: "deleteAll"}, false},
		{"unknown module", capability.ModuleRequest{Module: "mailer"}, false},
		{"empty module", capability.ModuleRequest{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := checker.Check(ctx, "test-plugin", tt.req, nil)
			assert.Equal(t, tt.want, res.Allowed)
		})
	}
}

func TestModuleChecker_EmptyAPIListUnrestricted(t *testing.T) {
	row := &capability.ModuleRow{ID: 1, Call: true, Module: "mailer"}
	checker := NewModuleChecker(snapshotOf(capability.TypeModule, entryOf(1, row)), always)

	res := checker.Check(context.Background(), "test-plugin",
		capability.ModuleRequest{Module: "mailer", API: "anything"}, nil)

	assert.True(t, res.Allowed)
}

func TestModuleChecker_CallFlagRequired(t *testing.T) {
	row := &capability.ModuleRow{ID: 1, Call: false, Module: "mailer"}
	checker := NewModuleChecker(snapshotOf(capability.TypeModule, entryOf(1, row)), always)

	res := checker.Check(context.Background(), "test-plugin",
		capability.ModuleRequest{Module: "mailer"}, nil)

	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonNoMatch, res.Reason)
}
