package decision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
)

func TestCodecChecker_Methods(t *testing.T) {
	row := &capability.CodecRow{ID: 1, Invoke: true, Methods: []string{"serialize", "json_encode"}}
	checker := NewCodecChecker(snapshotOf(capability.TypeCodec, entryOf(1, row)), always)
	ctx := context.Background()

	res := checker.Check(ctx, "test-plugin", capability.CodecRequest{Method: "serialize"}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.CodecRequest{Method: "unserialize"}, nil)
	assert.False(t, res.Allowed)
	assert.Equal(t, capability.ReasonNoMatch, res.Reason)
}

func TestCodecChecker_WildcardMethod(t *testing.T) {
	row := &capability.CodecRow{ID: 1, Invoke: true, Methods: []string{"*"}}
	checker := NewCodecChecker(snapshotOf(capability.TypeCodec, entryOf(1, row)), always)

	res := checker.Check(context.Background(), "test-plugin", capability.CodecRequest{Method: "json_decode"}, nil)
	assert.True(t, res.Allowed)
}

func TestCodecChecker_UnserializeClassGuard(t *testing.T) {
	row := &capability.CodecRow{
		ID:      1,
		Invoke:  true,
		Methods: []string{"unserialize"},
		Options: capability.CodecOptions{AllowUnserializeClasses: []string{"App\\DTO\\Order"}},
	}
	checker := NewCodecChecker(snapshotOf(capability.TypeCodec, entryOf(1, row)), always)
	ctx := context.Background()

	res := checker.Check(ctx, "test-plugin", capability.CodecRequest{
		Method: "unserialize", TargetClass: "App\\DTO\\Order",
	}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.CodecRequest{
		Method: "unserialize", TargetClass: "System\\Process",
	}, nil)
	assert.False(t, res.Allowed)
}

func TestCodecChecker_UnserializeEmptyClassListDeniesClasses(t *testing.T) {
	// The method alone is allowed, but a class-targeted unserialize needs
	// an explicit class allow-list.
	row := &capability.CodecRow{ID: 1, Invoke: true, Methods: []string{"unserialize"}}
	checker := NewCodecChecker(snapshotOf(capability.TypeCodec, entryOf(1, row)), always)
	ctx := context.Background()

	res := checker.Check(ctx, "test-plugin", capability.CodecRequest{Method: "unserialize"}, nil)
	assert.True(t, res.Allowed)

	res = checker.Check(ctx, "test-plugin", capability.CodecRequest{
		Method: "unserialize", TargetClass: "App\\DTO\\Order",
	}, nil)
	assert.False(t, res.Allowed)
}

func TestCodecChecker_InvokeFlagRequired(t *testing.T) {
	row := &capability.CodecRow{ID: 1, Invoke: false, Methods: []string{"*"}}
	checker := NewCodecChecker(snapshotOf(capability.TypeCodec, entryOf(1, row)), always)

	res := checker.Check(context.Background(), "test-plugin", capability.CodecRequest{Method: "serialize"}, nil)
	assert.False(t, res.Allowed)
}
