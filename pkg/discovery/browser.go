package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Browser provides mDNS service browsing capabilities.
type Browser interface {
	// BrowseCommissioners searches for commissioners on the local network.
	// The channel is closed when the context is cancelled or Stop is called.
	BrowseCommissioners(ctx context.Context) (<-chan *CommissionerRecord, error)

	// FindCommissioner searches for a commissioner with the given instance
	// name. Returns when found or when the context is cancelled.
	FindCommissioner(ctx context.Context, instanceName string) (*CommissionerRecord, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for one-shot lookups.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(*CommissionerRecord) bool

// FilterByVendor returns a filter that matches commissioners with any of the
// given vendor IDs.
func FilterByVendor(vendorIDs ...uint16) FilterFunc {
	vendorSet := make(map[uint16]struct{})
	for _, v := range vendorIDs {
		vendorSet[v] = struct{}{}
	}

	return func(rec *CommissionerRecord) bool {
		_, ok := vendorSet[rec.VendorID]
		return ok
	}
}

// FilterByDeviceType returns a filter that matches commissioners with the
// given device type.
func FilterByDeviceType(deviceType uint32) FilterFunc {
	return func(rec *CommissionerRecord) bool {
		return rec.DeviceType == deviceType
	}
}

// FilterBrowseResults filters a channel of commissioner records.
func FilterBrowseResults(in <-chan *CommissionerRecord, filter FilterFunc) <-chan *CommissionerRecord {
	out := make(chan *CommissionerRecord)
	go func() {
		defer close(out)
		for rec := range in {
			if filter(rec) {
				out <- rec
			}
		}
	}()
	return out
}

// NewInstanceName generates a random commissionable instance name.
//
// The name does not identify the caster; commissioners match the
// advertisement against the onboarding code through the D TXT record.
func NewInstanceName() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TVCast-" + strings.ToUpper(raw[:16])
}

// ServiceEntry is raw mDNS service entry data, decoupled from the mDNS
// library's own entry type. This is a helper for Browser implementations
// and for tests.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToCommissionerRecord converts a ServiceEntry to a CommissionerRecord.
func (e *ServiceEntry) ToCommissionerRecord() (*CommissionerRecord, error) {
	txt := StringsToTXTRecords(e.Text)
	info, err := DecodeCommissionerTXT(txt)
	if err != nil {
		return nil, err
	}

	return &CommissionerRecord{
		InstanceName: e.Instance,
		DeviceName:   info.DeviceName,
		VendorID:     info.VendorID,
		ProductID:    info.ProductID,
		DeviceType:   info.DeviceType,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
	}, nil
}
