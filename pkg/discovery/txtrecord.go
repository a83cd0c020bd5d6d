package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// CommissionerInfo contains the TXT record content of a commissioner
// advertisement.
type CommissionerInfo struct {
	VendorID   uint16
	ProductID  uint16
	DeviceName string
	DeviceType uint32
}

// EncodeCommissionerTXT creates TXT records for commissioner discovery.
func EncodeCommissionerTXT(info *CommissionerInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyVendorProduct] = EncodeVendorProduct(info.VendorID, info.ProductID)

	// Optional fields
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}
	if info.DeviceType > 0 {
		txt[TXTKeyDeviceType] = strconv.FormatUint(uint64(info.DeviceType), 10)
	}

	return txt
}

// DecodeCommissionerTXT parses TXT records from commissioner discovery.
func DecodeCommissionerTXT(txt TXTRecordMap) (*CommissionerInfo, error) {
	info := &CommissionerInfo{}

	// Parse vendor/product (required)
	vpStr, ok := txt[TXTKeyVendorProduct]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVendorProduct)
	}
	var err error
	info.VendorID, info.ProductID, err = DecodeVendorProduct(vpStr)
	if err != nil {
		return nil, err
	}

	// Optional fields
	info.DeviceName = txt[TXTKeyDeviceName]

	if dtStr, ok := txt[TXTKeyDeviceType]; ok {
		dt, err := strconv.ParseUint(dtStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid device type %q", ErrInvalidTXTRecord, dtStr)
		}
		info.DeviceType = uint32(dt)
	}

	return info, nil
}

// EncodeCommissionableTXT creates TXT records for commissionable advertising.
func EncodeCommissionableTXT(info *CommissionableInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyDiscriminator] = strconv.FormatUint(uint64(info.Discriminator), 10)
	txt[TXTKeyCommissioning] = "1"
	txt[TXTKeyVendorProduct] = EncodeVendorProduct(info.VendorID, info.ProductID)

	// Optional fields
	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}
	if info.DeviceType > 0 {
		txt[TXTKeyDeviceType] = strconv.FormatUint(uint64(info.DeviceType), 10)
	}

	return txt
}

// DecodeCommissionableTXT parses TXT records from commissionable discovery.
func DecodeCommissionableTXT(txt TXTRecordMap) (*CommissionableInfo, error) {
	info := &CommissionableInfo{}

	// Parse discriminator (required)
	dStr, ok := txt[TXTKeyDiscriminator]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDiscriminator)
	}
	d, err := strconv.ParseUint(dStr, 10, 16)
	if err != nil || d > MaxDiscriminator {
		return nil, ErrInvalidDiscriminator
	}
	info.Discriminator = uint16(d)

	// Parse vendor/product (required)
	vpStr, ok := txt[TXTKeyVendorProduct]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVendorProduct)
	}
	info.VendorID, info.ProductID, err = DecodeVendorProduct(vpStr)
	if err != nil {
		return nil, err
	}

	// Optional fields
	info.DeviceName = txt[TXTKeyDeviceName]

	if dtStr, ok := txt[TXTKeyDeviceType]; ok {
		dt, err := strconv.ParseUint(dtStr, 10, 32)
		if err == nil {
			info.DeviceType = uint32(dt)
		}
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
