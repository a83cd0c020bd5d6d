package discovery

import (
	"errors"
	"testing"
)

func TestCommissionerTXTRoundTrip(t *testing.T) {
	info := &CommissionerInfo{
		VendorID:   65521,
		ProductID:  32769,
		DeviceName: "Living Room TV",
		DeviceType: 35,
	}

	txt := EncodeCommissionerTXT(info)

	if txt[TXTKeyVendorProduct] != "65521+32769" {
		t.Errorf("VP = %q", txt[TXTKeyVendorProduct])
	}
	if txt[TXTKeyDeviceName] != "Living Room TV" {
		t.Errorf("DN = %q", txt[TXTKeyDeviceName])
	}
	if txt[TXTKeyDeviceType] != "35" {
		t.Errorf("DT = %q", txt[TXTKeyDeviceType])
	}

	decoded, err := DecodeCommissionerTXT(txt)
	if err != nil {
		t.Fatalf("DecodeCommissionerTXT: %v", err)
	}
	if *decoded != *info {
		t.Errorf("round trip = %+v, want %+v", decoded, info)
	}
}

func TestCommissionerTXTOptionalFieldsOmitted(t *testing.T) {
	txt := EncodeCommissionerTXT(&CommissionerInfo{VendorID: 1, ProductID: 2})

	if _, ok := txt[TXTKeyDeviceName]; ok {
		t.Error("empty DN should be omitted")
	}
	if _, ok := txt[TXTKeyDeviceType]; ok {
		t.Error("zero DT should be omitted")
	}

	decoded, err := DecodeCommissionerTXT(txt)
	if err != nil {
		t.Fatalf("DecodeCommissionerTXT: %v", err)
	}
	if decoded.DeviceName != "" || decoded.DeviceType != 0 {
		t.Errorf("optional fields = %+v, want zero values", decoded)
	}
}

func TestDecodeCommissionerTXTErrors(t *testing.T) {
	tests := []struct {
		name    string
		txt     TXTRecordMap
		wantErr error
	}{
		{
			name:    "MissingVP",
			txt:     TXTRecordMap{TXTKeyDeviceName: "TV"},
			wantErr: ErrMissingRequired,
		},
		{
			name:    "BadVP",
			txt:     TXTRecordMap{TXTKeyVendorProduct: "acme"},
			wantErr: ErrInvalidTXTRecord,
		},
		{
			name:    "BadDeviceType",
			txt:     TXTRecordMap{TXTKeyVendorProduct: "1+2", TXTKeyDeviceType: "tv"},
			wantErr: ErrInvalidTXTRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommissionerTXT(tt.txt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCommissionableTXTRoundTrip(t *testing.T) {
	info := &CommissionableInfo{
		Discriminator: 3840,
		VendorID:      65521,
		ProductID:     32769,
		DeviceName:    "Caster",
		DeviceType:    41,
	}

	txt := EncodeCommissionableTXT(info)

	if txt[TXTKeyDiscriminator] != "3840" {
		t.Errorf("D = %q", txt[TXTKeyDiscriminator])
	}
	if txt[TXTKeyCommissioning] != "1" {
		t.Errorf("CM = %q", txt[TXTKeyCommissioning])
	}

	decoded, err := DecodeCommissionableTXT(txt)
	if err != nil {
		t.Fatalf("DecodeCommissionableTXT: %v", err)
	}
	if decoded.Discriminator != info.Discriminator ||
		decoded.VendorID != info.VendorID ||
		decoded.ProductID != info.ProductID ||
		decoded.DeviceName != info.DeviceName ||
		decoded.DeviceType != info.DeviceType {
		t.Errorf("round trip = %+v, want %+v", decoded, info)
	}
}

func TestDecodeCommissionableTXTErrors(t *testing.T) {
	tests := []struct {
		name    string
		txt     TXTRecordMap
		wantErr error
	}{
		{
			name:    "MissingDiscriminator",
			txt:     TXTRecordMap{TXTKeyVendorProduct: "1+2"},
			wantErr: ErrMissingRequired,
		},
		{
			name:    "DiscriminatorOutOfRange",
			txt:     TXTRecordMap{TXTKeyDiscriminator: "4096", TXTKeyVendorProduct: "1+2"},
			wantErr: ErrInvalidDiscriminator,
		},
		{
			name:    "NonNumericDiscriminator",
			txt:     TXTRecordMap{TXTKeyDiscriminator: "abc", TXTKeyVendorProduct: "1+2"},
			wantErr: ErrInvalidDiscriminator,
		},
		{
			name:    "MissingVP",
			txt:     TXTRecordMap{TXTKeyDiscriminator: "100"},
			wantErr: ErrMissingRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommissionableTXT(tt.txt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTXTStringsRoundTrip(t *testing.T) {
	txt := TXTRecordMap{
		"D":  "3840",
		"VP": "65521+32769",
		"DN": "Living Room TV",
	}

	strs := TXTRecordsToStrings(txt)
	if len(strs) != 3 {
		t.Fatalf("TXTRecordsToStrings returned %d entries, want 3", len(strs))
	}

	back := StringsToTXTRecords(strs)
	for k, v := range txt {
		if back[k] != v {
			t.Errorf("key %q = %q, want %q", k, back[k], v)
		}
	}
}

func TestStringsToTXTRecordsFlagKey(t *testing.T) {
	txt := StringsToTXTRecords([]string{"CM", "D=100"})
	if v, ok := txt["CM"]; !ok || v != "" {
		t.Errorf("flag key CM = (%q, %v), want empty value present", v, ok)
	}
	if txt["D"] != "100" {
		t.Errorf("D = %q, want %q", txt["D"], "100")
	}
}

func TestValidateInstanceName(t *testing.T) {
	if err := ValidateInstanceName("TVCast-0123456789ABCDEF"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateInstanceName(""); err == nil {
		t.Error("empty name accepted")
	}
	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name error = %v, want ErrInstanceNameTooLong", err)
	}
}
