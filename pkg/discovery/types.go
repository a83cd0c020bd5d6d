package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeCommissioner is the service type advertised by commissioners
	// (TVs, set-top boxes). Casters browse for it during discovery.
	ServiceTypeCommissioner = "_tvcastd._tcp"

	// ServiceTypeCommissionable is the service type a caster advertises while
	// its commissioning window is open.
	ServiceTypeCommissionable = "_tvcastc._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default commissioning window port.
	DefaultPort = 8443
)

// TXT record key constants.
const (
	// Commissionable TXT keys
	TXTKeyDiscriminator = "D"  // Discriminator (0-4095)
	TXTKeyCommissioning = "CM" // Commissioning mode flag ("1" while window open)

	// Shared TXT keys
	TXTKeyVendorProduct = "VP" // "<vendor>+<product>" decimal pair
	TXTKeyDeviceName    = "DN" // User-visible device name (optional)
	TXTKeyDeviceType    = "DT" // Device type (optional, decimal uint32)
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for one-shot mDNS lookups.
	BrowseTimeout = 10 * time.Second

	// MDNSUpdateDelay is the maximum delay for mDNS updates.
	MDNSUpdateDelay = 1 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400

	// MaxDiscriminator is the maximum discriminator value (12 bits).
	MaxDiscriminator = 4095
)

// Discovery errors.
var (
	ErrRecordNotFound       = errors.New("discovered commissioner record not found")
	ErrInvalidDiscriminator = errors.New("discriminator out of range")
	ErrInvalidTXTRecord     = errors.New("invalid TXT record format")
	ErrMissingRequired      = errors.New("missing required field")
	ErrInstanceNameTooLong  = errors.New("instance name exceeds 63 characters")
	ErrNotFound             = errors.New("service not found")
	ErrBrowseTimeout        = errors.New("browse timeout")
)

// CommissionerRecord describes a commissioner found via mDNS. Records are
// immutable once appended to a Registry; callers refer to them by position.
type CommissionerRecord struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// DeviceName is the user-visible name (from TXT "DN").
	DeviceName string

	// VendorID identifies the commissioner vendor (from TXT "VP").
	VendorID uint16

	// ProductID identifies the commissioner product (from TXT "VP").
	ProductID uint16

	// DeviceType is the commissioner's device type (from TXT "DT").
	DeviceType uint32

	// Host is the hostname (e.g., "living-room-tv.local").
	Host string

	// Port is the commissioner's UDC listen port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string
}

// Address returns the record's preferred address, or empty when none resolved.
func (r *CommissionerRecord) Address() string {
	if len(r.Addresses) == 0 {
		return ""
	}
	return r.Addresses[0]
}

// String returns a short human-readable summary.
func (r *CommissionerRecord) String() string {
	name := r.DeviceName
	if name == "" {
		name = r.InstanceName
	}
	return fmt.Sprintf("%s (%s:%d)", name, r.Address(), r.Port)
}

// CommissionableInfo contains information for advertising a caster whose
// commissioning window is open.
type CommissionableInfo struct {
	// InstanceName is the mDNS instance name. Generated when empty.
	InstanceName string

	// Discriminator identifies this caster (0-4095).
	Discriminator uint16

	// VendorID identifies the caster vendor.
	VendorID uint16

	// ProductID identifies the caster product.
	ProductID uint16

	// DeviceName is an optional user-visible name.
	DeviceName string

	// DeviceType is an optional device type.
	DeviceType uint32

	// Port is the commissioning window port.
	Port uint16
}

// Validate checks if the CommissionableInfo is valid.
func (i *CommissionableInfo) Validate() error {
	if i.Discriminator > MaxDiscriminator {
		return ErrInvalidDiscriminator
	}
	if len(i.InstanceName) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// EncodeVendorProduct formats a vendor/product pair for the VP TXT record.
func EncodeVendorProduct(vendorID, productID uint16) string {
	return fmt.Sprintf("%d+%d", vendorID, productID)
}

// DecodeVendorProduct parses a VP TXT record value. The product part is
// optional ("65521" means vendor only).
func DecodeVendorProduct(s string) (vendorID, productID uint16, err error) {
	vendorStr, productStr, found := strings.Cut(s, "+")

	v, err := strconv.ParseUint(vendorStr, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: vendor in %q", ErrInvalidTXTRecord, s)
	}

	var p uint64
	if found {
		p, err = strconv.ParseUint(productStr, 10, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: product in %q", ErrInvalidTXTRecord, s)
		}
	}

	return uint16(v), uint16(p), nil
}
