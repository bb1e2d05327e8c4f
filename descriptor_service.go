package astisdt

import "fmt"

// ServiceType represents a service type
// Page: 97 | Chapter: 6.2.33 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type ServiceType uint8

// Service types
const (
	ServiceTypeDigitalTelevision                                          ServiceType = 0x01
	ServiceTypeDigitalRadioSound                                          ServiceType = 0x02
	ServiceTypeTeletext                                                   ServiceType = 0x03
	ServiceTypeNVODReference                                              ServiceType = 0x04
	ServiceTypeNVODTimeShifted                                            ServiceType = 0x05
	ServiceTypeMosaic                                                     ServiceType = 0x06
	ServiceTypeFMRadio                                                    ServiceType = 0x07
	ServiceTypeDVBSRM                                                     ServiceType = 0x08
	ServiceTypeAdvancedCodecDigitalRadioSound                             ServiceType = 0x0a
	ServiceTypeH264AVCMosaic                                              ServiceType = 0x0b
	ServiceTypeDataBroadcast                                              ServiceType = 0x0c
	ServiceTypeRCSMap                                                     ServiceType = 0x0e
	ServiceTypeRCSFLS                                                     ServiceType = 0x0f
	ServiceTypeDVBMHP                                                     ServiceType = 0x10
	ServiceTypeMPEG2HDDigitalTelevision                                   ServiceType = 0x11
	ServiceTypeH264AVCSDDigitalTelevision                                 ServiceType = 0x16
	ServiceTypeH264AVCSDNVODTimeShifted                                   ServiceType = 0x17
	ServiceTypeH264AVCSDNVODReference                                     ServiceType = 0x18
	ServiceTypeH264AVCHDDigitalTelevision                                 ServiceType = 0x19
	ServiceTypeH264AVCHDNVODTimeShifted                                   ServiceType = 0x1a
	ServiceTypeH264AVCHDNVODReference                                     ServiceType = 0x1b
	ServiceTypeH264AVCFrameCompatiblePlanoStereoscopicHDDigitalTelevision ServiceType = 0x1c
	ServiceTypeH264AVCFrameCompatiblePlanoStereoscopicHDNVODTimeShifted   ServiceType = 0x1d
	ServiceTypeH264AVCFrameCompatiblePlanoStereoscopicHDNVODReference     ServiceType = 0x1e
	ServiceTypeHEVCDigitalTelevision                                      ServiceType = 0x1f
	ServiceTypeUserDefinedStart                                           ServiceType = 0x80
	ServiceTypeUserDefinedEnd                                             ServiceType = 0xfe
)

var serviceTypeNames = map[ServiceType]string{
	ServiceTypeDigitalTelevision:              "digital television",
	ServiceTypeDigitalRadioSound:              "digital radio sound",
	ServiceTypeTeletext:                       "teletext",
	ServiceTypeNVODReference:                  "NVOD reference",
	ServiceTypeNVODTimeShifted:                "NVOD time-shifted",
	ServiceTypeMosaic:                         "mosaic",
	ServiceTypeFMRadio:                        "FM radio",
	ServiceTypeDVBSRM:                         "DVB SRM",
	ServiceTypeAdvancedCodecDigitalRadioSound: "advanced codec digital radio sound",
	ServiceTypeH264AVCMosaic:                  "H.264/AVC mosaic",
	ServiceTypeDataBroadcast:                  "data broadcast",
	ServiceTypeRCSMap:                         "RCS Map",
	ServiceTypeRCSFLS:                         "RCS FLS",
	ServiceTypeDVBMHP:                         "DVB MHP",
	ServiceTypeMPEG2HDDigitalTelevision:       "MPEG-2 HD digital television",
	ServiceTypeH264AVCSDDigitalTelevision:     "H.264/AVC SD digital television",
	ServiceTypeH264AVCSDNVODTimeShifted:       "H.264/AVC SD NVOD time-shifted",
	ServiceTypeH264AVCSDNVODReference:         "H.264/AVC SD NVOD reference",
	ServiceTypeH264AVCHDDigitalTelevision:     "H.264/AVC HD digital television",
	ServiceTypeH264AVCHDNVODTimeShifted:       "H.264/AVC HD NVOD time-shifted",
	ServiceTypeH264AVCHDNVODReference:         "H.264/AVC HD NVOD reference",
	ServiceTypeH264AVCFrameCompatiblePlanoStereoscopicHDDigitalTelevision: "H.264/AVC frame compatible plano-stereoscopic HD digital television",
	ServiceTypeH264AVCFrameCompatiblePlanoStereoscopicHDNVODTimeShifted:   "H.264/AVC frame compatible plano-stereoscopic HD NVOD time-shifted",
	ServiceTypeH264AVCFrameCompatiblePlanoStereoscopicHDNVODReference:     "H.264/AVC frame compatible plano-stereoscopic HD NVOD reference",
	ServiceTypeHEVCDigitalTelevision:                                      "HEVC digital television",
}

// IsUserDefined checks whether the service type is in the user defined range
func (t ServiceType) IsUserDefined() bool {
	return t >= ServiceTypeUserDefinedStart && t <= ServiceTypeUserDefinedEnd
}

// IsReserved checks whether the service type is reserved for future use
func (t ServiceType) IsReserved() bool {
	_, ok := serviceTypeNames[t]
	return !ok && !t.IsUserDefined()
}

// String implements the Stringer interface
func (t ServiceType) String() string {
	if n, ok := serviceTypeNames[t]; ok {
		return n
	}
	if t.IsUserDefined() {
		return fmt.Sprintf("user defined (0x%.2x)", uint8(t))
	}
	return fmt.Sprintf("reserved (0x%.2x)", uint8(t))
}

// ServiceDescriptor represents a service descriptor. It points to the section buffer and
// names are only decoded when asked for.
// Page: 96 | Chapter: 6.2.33 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type ServiceDescriptor struct {
	data []byte
}

// NewServiceDescriptor creates a service descriptor from its payload. The tag must be
// DescriptorTagService.
func NewServiceDescriptor(tag DescriptorTag, data []byte) (*ServiceDescriptor, error) {
	return newServiceDescriptor(tag, data)
}

func newServiceDescriptor(tag DescriptorTag, data []byte) (*ServiceDescriptor, error) {
	if tag != DescriptorTagService {
		return nil, fmt.Errorf("astisdt: expected tag 0x%.2x, got 0x%.2x: %w", uint8(DescriptorTagService), uint8(tag), ErrDescriptorTagMismatch)
	}
	if len(data) == 0 {
		return nil, newNotEnoughDataError(1, 0)
	}
	return &ServiceDescriptor{data: data}, nil
}

// ServiceType returns the service type
func (d *ServiceDescriptor) ServiceType() ServiceType {
	return ServiceType(d.data[0])
}

// ServiceProviderName returns the service provider name
func (d *ServiceDescriptor) ServiceProviderName() (Text, error) {
	if len(d.data) < 2 {
		return Text{}, newNotEnoughDataError(2, len(d.data))
	}
	end := 2 + int(d.data[1])
	if end > len(d.data) {
		return Text{}, newNotEnoughDataError(end, len(d.data))
	}
	return NewText(d.data[2:end])
}

// ServiceName returns the service name
func (d *ServiceDescriptor) ServiceName() (Text, error) {
	if len(d.data) < 2 {
		return Text{}, newNotEnoughDataError(2, len(d.data))
	}

	// Service name length is located right after the service provider name
	start := 2 + int(d.data[1])
	if start >= len(d.data) {
		return Text{}, newNotEnoughDataError(start+1, len(d.data))
	}
	end := start + 1 + int(d.data[start])
	if end > len(d.data) {
		return Text{}, newNotEnoughDataError(end, len(d.data))
	}
	return NewText(d.data[start+1 : end])
}

// Bytes returns the raw descriptor payload
func (d *ServiceDescriptor) Bytes() []byte {
	return d.data
}

// String implements the Stringer interface
func (d *ServiceDescriptor) String() string {
	return fmt.Sprintf("service: type %s, provider %s, name %s", d.ServiceType(),
		textOrErrorToString(d.ServiceProviderName()), textOrErrorToString(d.ServiceName()))
}

func textOrErrorToString(t Text, err error) string {
	if err != nil {
		return fmt.Sprintf("<%s>", err)
	}
	return fmt.Sprintf("%q", t.String())
}
