package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu sync.Mutex

	commissionableServer *zeroconf.Server
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config: config,
	}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// AdvertiseCommissionable starts advertising the commissionable service.
func (a *MDNSAdvertiser) AdvertiseCommissionable(ctx context.Context, info *CommissionableInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Stop existing if any
	if a.commissionableServer != nil {
		a.commissionableServer.Shutdown()
		a.commissionableServer = nil
	}

	instanceName := info.InstanceName
	if instanceName == "" {
		instanceName = NewInstanceName()
	}

	txtRecords := EncodeCommissionableTXT(info)
	txtStrings := TXTRecordsToStrings(txtRecords)

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	// Get interfaces (nil means all interfaces)
	ifaces := a.getInterfaces()

	server, err := zeroconf.Register(
		instanceName,
		ServiceTypeCommissionable,
		Domain,
		port,
		txtStrings,
		ifaces,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register commissionable service: %w", err)
	}

	a.commissionableServer = server
	return nil
}

// StopCommissionable stops advertising the commissionable service.
func (a *MDNSAdvertiser) StopCommissionable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.commissionableServer != nil {
		a.commissionableServer.Shutdown()
		a.commissionableServer = nil
	}
	return nil
}

// StopAll stops all advertisements.
func (a *MDNSAdvertiser) StopAll() {
	_ = a.StopCommissionable()
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{
		config: config,
	}, nil
}

// BrowseCommissioners searches for commissioners on the local network.
// Services are aggregated by instance name - addresses from multiple
// interfaces are combined into a single record, and a record is only
// emitted the first time its instance name appears.
func (b *MDNSBrowser) BrowseCommissioners(ctx context.Context) (<-chan *CommissionerRecord, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil, ErrBrowseTimeout
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *CommissionerRecord)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track records by instance name, aggregating addresses
		records := make(map[string]*CommissionerRecord)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				rec := b.entryToCommissioner(entry)
				if rec == nil {
					continue
				}

				existing, found := records[rec.InstanceName]
				if found {
					// Merge addresses into existing record
					existing.Addresses = mergeAddresses(existing.Addresses, rec.Addresses)
				} else {
					// New record - store and emit
					records[rec.InstanceName] = rec
					select {
					case out <- rec:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Remove addresses that came from this interface
				if existing, found := records[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(records, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceTypeCommissioner, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindCommissioner searches for a commissioner with the given instance name.
func (b *MDNSBrowser) FindCommissioner(ctx context.Context, instanceName string) (*CommissionerRecord, error) {
	if b.config.BrowseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	results, err := b.BrowseCommissioners(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case rec, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if rec.InstanceName == instanceName {
				return rec, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToCommissioner converts a zeroconf entry to a CommissionerRecord.
func (b *MDNSBrowser) entryToCommissioner(entry *zeroconf.ServiceEntry) *CommissionerRecord {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeCommissionerTXT(txt)
	if err != nil {
		return nil
	}

	// Collect addresses
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &CommissionerRecord{
		InstanceName: entry.Instance,
		DeviceName:   info.DeviceName,
		VendorID:     info.VendorID,
		ProductID:    info.ProductID,
		DeviceType:   info.DeviceType,
		Host:         entry.HostName,
		Port:         uint16(entry.Port),
		Addresses:    addrs,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
