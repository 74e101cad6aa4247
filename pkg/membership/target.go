package membership

import (
	"fmt"
	"strings"

	"github.com/creatorkit/membership/pkg/ledger"
)

// TargetKind distinguishes per-creator memberships from the platform-wide one.
type TargetKind uint8

const (
	KindPlatform TargetKind = iota
	KindCreator
)

func (k TargetKind) String() string {
	if k == KindCreator {
		return "creator"
	}
	return "platform"
}

// Target is what a subscriber joins: a single creator or the platform.
// The zero value is the platform target.
type Target struct {
	kind    TargetKind
	creator ledger.PublicKey
}

// CreatorTarget returns the membership target of one creator.
func CreatorTarget(creator ledger.PublicKey) Target {
	return Target{kind: KindCreator, creator: creator}
}

// PlatformTarget returns the platform-wide membership target.
func PlatformTarget() Target {
	return Target{kind: KindPlatform}
}

// ParseTarget parses the text form produced by Target.String.
func ParseTarget(s string) (Target, error) {
	if s == "platform" {
		return PlatformTarget(), nil
	}
	raw, ok := strings.CutPrefix(s, "creator:")
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
	pk, err := ledger.ParsePublicKey(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return CreatorTarget(pk), nil
}

func (t Target) Kind() TargetKind { return t.kind }

func (t Target) IsPlatform() bool { return t.kind == KindPlatform }

// Creator returns the creator identity, zero for the platform target.
func (t Target) Creator() ledger.PublicKey { return t.creator }

// Label is the capitalised form used in stream names.
func (t Target) Label() string {
	if t.IsPlatform() {
		return "Platform"
	}
	return "Creator"
}

// String returns "platform" or "creator:<identity>".
func (t Target) String() string {
	if t.IsPlatform() {
		return "platform"
	}
	return "creator:" + t.creator.String()
}

func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := ParseTarget(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Target) validate() error {
	if t.kind == KindCreator && t.creator.IsZero() {
		return fmt.Errorf("%w: empty creator", ErrInvalidTarget)
	}
	return nil
}
