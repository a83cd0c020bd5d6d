package wire

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Onboarding payload constants.
const (
	// PasscodeDigits is the number of digits in a setup passcode.
	PasscodeDigits = 8

	// PasscodeMax is the maximum setup passcode value. Passcodes are
	// 27-bit values rendered as 8 decimal digits.
	PasscodeMax = 99999998

	// PasscodeMin is the minimum valid setup passcode value.
	PasscodeMin = 1

	// DiscriminatorMax is the maximum discriminator value (12 bits).
	DiscriminatorMax = 0xFFF
)

// Onboarding payload errors.
var (
	ErrInvalidPasscode       = errors.New("invalid setup passcode")
	ErrInvalidOnboardingCode = errors.New("invalid onboarding code format")
	ErrUnsupportedVersion    = errors.New("unsupported protocol version")
)

// invalidPasscodes are trivially guessable values that are never issued
// and never accepted.
var invalidPasscodes = map[uint32]struct{}{
	11111111: {},
	22222222: {},
	33333333: {},
	44444444: {},
	55555555: {},
	66666666: {},
	77777777: {},
	88888888: {},
	12345678: {},
	87654321: {},
}

// Passcode is a setup passcode proving physical possession of the caster.
// It is the password input for the SPAKE2+ exchange during commissioning.
type Passcode uint32

// GeneratePasscode generates a cryptographically random setup passcode,
// retrying until the value is outside the invalid list.
func GeneratePasscode() (Passcode, error) {
	max := big.NewInt(PasscodeMax)
	for {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return 0, fmt.Errorf("failed to generate random passcode: %w", err)
		}
		pc := Passcode(n.Uint64() + PasscodeMin)
		if pc.Validate() == nil {
			return pc, nil
		}
	}
}

// ParsePasscode parses an 8-digit string into a Passcode.
func ParsePasscode(s string) (Passcode, error) {
	s = strings.TrimSpace(s)
	if len(s) != PasscodeDigits {
		return 0, fmt.Errorf("%w: must be %d digits", ErrInvalidPasscode, PasscodeDigits)
	}

	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPasscode, err)
	}

	pc := Passcode(n)
	if err := pc.Validate(); err != nil {
		return 0, err
	}
	return pc, nil
}

// String returns the passcode as an 8-digit string with leading zeros.
func (pc Passcode) String() string {
	return fmt.Sprintf("%08d", uint32(pc))
}

// Bytes returns the passcode as UTF-8 encoded bytes.
// This is the password input for SPAKE2+.
func (pc Passcode) Bytes() []byte {
	return []byte(pc.String())
}

// Validate checks if the passcode is in range and not a known-weak value.
func (pc Passcode) Validate() error {
	if pc < PasscodeMin || pc > PasscodeMax {
		return fmt.Errorf("%w: out of range", ErrInvalidPasscode)
	}
	if _, bad := invalidPasscodes[uint32(pc)]; bad {
		return fmt.Errorf("%w: trivial value", ErrInvalidPasscode)
	}
	return nil
}

// OnboardingPayload carries everything a commissioner needs to commission
// this caster. It is computed once at engine initialization and read-only
// thereafter.
type OnboardingPayload struct {
	// Version is the onboarding code format version (currently 1).
	Version int

	// Discriminator is the 12-bit value commissioners use to match the
	// caster's mDNS advertisement against the onboarding code.
	Discriminator uint16

	// Passcode is the 8-digit setup passcode.
	Passcode Passcode

	// VendorID identifies the caster vendor.
	VendorID uint16

	// ProductID identifies the caster product.
	ProductID uint16
}

// onboardingCodeRegex matches the TVCast onboarding code format.
var onboardingCodeRegex = regexp.MustCompile(`^TVCAST:(\d+):(\d+):(\d{8}):(0x[0-9a-fA-F]+|[0-9]+):(0x[0-9a-fA-F]+|[0-9]+)$`)

// ParseOnboardingCode parses a TVCast onboarding code string.
// Format: TVCAST:<version>:<discriminator>:<passcode>:<vendorid>:<productid>
func ParseOnboardingCode(data string) (*OnboardingPayload, error) {
	data = strings.TrimSpace(data)

	matches := onboardingCodeRegex.FindStringSubmatch(data)
	if matches == nil {
		return nil, fmt.Errorf("%w: expected TVCAST:<version>:<discriminator>:<passcode>:<vendorid>:<productid>", ErrInvalidOnboardingCode)
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid version: %v", ErrInvalidOnboardingCode, err)
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version)
	}

	discriminator, err := strconv.ParseUint(matches[2], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid discriminator: %v", ErrInvalidOnboardingCode, err)
	}
	if discriminator > DiscriminatorMax {
		return nil, fmt.Errorf("%w: discriminator exceeds 12 bits", ErrInvalidOnboardingCode)
	}

	passcode, err := ParsePasscode(matches[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOnboardingCode, err)
	}

	vendorID, err := parseHexOrDecID(matches[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid vendor ID: %v", ErrInvalidOnboardingCode, err)
	}

	productID, err := parseHexOrDecID(matches[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid product ID: %v", ErrInvalidOnboardingCode, err)
	}

	return &OnboardingPayload{
		Version:       version,
		Discriminator: uint16(discriminator),
		Passcode:      passcode,
		VendorID:      uint16(vendorID),
		ProductID:     uint16(productID),
	}, nil
}

// parseHexOrDecID parses a vendor or product ID, supporting both hex (0x...)
// and decimal forms.
func parseHexOrDecID(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 16)
	}
	return strconv.ParseUint(s, 10, 16)
}

// String returns the onboarding code as a string.
func (p *OnboardingPayload) String() string {
	return fmt.Sprintf("TVCAST:%d:%d:%s:0x%04X:0x%04X",
		p.Version, p.Discriminator, p.Passcode.String(), p.VendorID, p.ProductID)
}

// Validate checks the payload fields.
func (p *OnboardingPayload) Validate() error {
	if p.Version != 1 {
		return fmt.Errorf("%w: version %d", ErrUnsupportedVersion, p.Version)
	}
	if p.Discriminator > DiscriminatorMax {
		return fmt.Errorf("%w: discriminator exceeds 12 bits", ErrInvalidOnboardingCode)
	}
	return p.Passcode.Validate()
}

// GenerateOnboardingPayload generates a fresh payload with a random
// passcode and discriminator.
func GenerateOnboardingPayload(vendorID, productID uint16) (*OnboardingPayload, error) {
	passcode, err := GeneratePasscode()
	if err != nil {
		return nil, err
	}
	discriminator, err := GenerateDiscriminator()
	if err != nil {
		return nil, err
	}
	return &OnboardingPayload{
		Version:       1,
		Discriminator: discriminator,
		Passcode:      passcode,
		VendorID:      vendorID,
		ProductID:     productID,
	}, nil
}

// GenerateDiscriminator generates a random 12-bit discriminator.
func GenerateDiscriminator() (uint16, error) {
	max := big.NewInt(DiscriminatorMax + 1)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, fmt.Errorf("failed to generate discriminator: %w", err)
	}
	return uint16(n.Uint64()), nil
}

// MustParsePasscode parses a passcode string and panics on error.
// Use only in tests or when the passcode is known to be valid.
func MustParsePasscode(s string) Passcode {
	pc, err := ParsePasscode(s)
	if err != nil {
		panic(err)
	}
	return pc
}
