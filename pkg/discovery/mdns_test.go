package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
)

func TestMergeAddresses(t *testing.T) {
	existing := []string{"192.168.1.50"}

	merged := mergeAddresses(existing, []string{"192.168.1.50", "fe80::1"})
	if len(merged) != 2 {
		t.Fatalf("merged = %v, want 2 entries", merged)
	}
	if merged[0] != "192.168.1.50" || merged[1] != "fe80::1" {
		t.Errorf("merged = %v", merged)
	}

	// Merging the same addresses again is a no-op.
	again := mergeAddresses(merged, []string{"fe80::1"})
	if len(again) != 2 {
		t.Errorf("re-merge = %v, want 2 entries", again)
	}
}

func TestRemoveAddresses(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
	}

	remaining := removeAddresses([]string{"192.168.1.50", "192.168.1.51"}, entry)
	if len(remaining) != 1 || remaining[0] != "192.168.1.51" {
		t.Errorf("remaining = %v, want [192.168.1.51]", remaining)
	}
}

func TestBrowserStopBeforeBrowse(t *testing.T) {
	b, err := NewMDNSBrowser(DefaultBrowserConfig())
	if err != nil {
		t.Fatalf("NewMDNSBrowser: %v", err)
	}

	b.Stop()

	if _, err := b.BrowseCommissioners(context.Background()); err == nil {
		t.Error("BrowseCommissioners after Stop should fail")
	}
}

func TestBrowserStopCancelsBrowse(t *testing.T) {
	b, err := NewMDNSBrowser(DefaultBrowserConfig())
	if err != nil {
		t.Fatalf("NewMDNSBrowser: %v", err)
	}

	out, err := b.BrowseCommissioners(context.Background())
	if err != nil {
		t.Skipf("mDNS unavailable: %v", err)
	}

	b.Stop()

	select {
	case _, ok := <-out:
		if ok {
			t.Error("unexpected record after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Error("browse channel not closed after Stop")
	}
}

func TestDefaultAdvertiserConfig(t *testing.T) {
	cfg := DefaultAdvertiserConfig()
	if cfg.TTL != 120*time.Second {
		t.Errorf("TTL = %v, want 120s", cfg.TTL)
	}
}

func TestAdvertiseCommissionableRejectsInvalidInfo(t *testing.T) {
	a, err := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	if err != nil {
		t.Fatalf("NewMDNSAdvertiser: %v", err)
	}

	bad := &CommissionableInfo{Discriminator: MaxDiscriminator + 1}
	if err := a.AdvertiseCommissionable(context.Background(), bad); err == nil {
		t.Error("invalid discriminator accepted")
	}
}
