package astisdt

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astikit"
)

// DescriptorTag defines the structure of the data following the descriptor length
type DescriptorTag uint8

// Descriptor tags
// ISO/IEC 13818-1: Page: 65 | Chapter: 2.6.1 | Link: https://www.itu.int/rec/T-REC-H.222.0
// DVB: Page: 41 | Chapter: 6.1 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	DescriptorTagVideoStream                DescriptorTag = 0x02
	DescriptorTagAudioStream                DescriptorTag = 0x03
	DescriptorTagHierarchy                  DescriptorTag = 0x04
	DescriptorTagRegistration               DescriptorTag = 0x05
	DescriptorTagDataStreamAlignment        DescriptorTag = 0x06
	DescriptorTagTargetBackgroundGrid       DescriptorTag = 0x07
	DescriptorTagVideoWindow                DescriptorTag = 0x08
	DescriptorTagCA                         DescriptorTag = 0x09
	DescriptorTagISO639Language             DescriptorTag = 0x0a
	DescriptorTagSystemClock                DescriptorTag = 0x0b
	DescriptorTagMultiplexBufferUtilization DescriptorTag = 0x0c
	DescriptorTagCopyright                  DescriptorTag = 0x0d
	DescriptorTagMaximumBitrate             DescriptorTag = 0x0e
	DescriptorTagPrivateDataIndicator       DescriptorTag = 0x0f
	DescriptorTagSmoothingBuffer            DescriptorTag = 0x10
	DescriptorTagSTD                        DescriptorTag = 0x11
	DescriptorTagIBP                        DescriptorTag = 0x12
	DescriptorTagMPEG4Video                 DescriptorTag = 0x1b
	DescriptorTagMPEG4Audio                 DescriptorTag = 0x1c
	DescriptorTagIOD                        DescriptorTag = 0x1d
	DescriptorTagSL                         DescriptorTag = 0x1e
	DescriptorTagFMC                        DescriptorTag = 0x1f
	DescriptorTagExternalESID               DescriptorTag = 0x20
	DescriptorTagMuxCode                    DescriptorTag = 0x21
	DescriptorTagFmxBufferSize              DescriptorTag = 0x22
	DescriptorTagMultiplexBuffer            DescriptorTag = 0x23
	DescriptorTagNetworkName                DescriptorTag = 0x40
	DescriptorTagServiceList                DescriptorTag = 0x41
	DescriptorTagStuffing                   DescriptorTag = 0x42
	DescriptorTagSatelliteDeliverySystem    DescriptorTag = 0x43
	DescriptorTagCableDeliverySystem        DescriptorTag = 0x44
	DescriptorTagVBIData                    DescriptorTag = 0x45
	DescriptorTagVBITeletext                DescriptorTag = 0x46
	DescriptorTagBouquetName                DescriptorTag = 0x47
	DescriptorTagService                    DescriptorTag = 0x48
	DescriptorTagCountryAvailability        DescriptorTag = 0x49
	DescriptorTagLinkage                    DescriptorTag = 0x4a
	DescriptorTagNVODReference              DescriptorTag = 0x4b
	DescriptorTagTimeShiftedService         DescriptorTag = 0x4c
	DescriptorTagShortEvent                 DescriptorTag = 0x4d
	DescriptorTagExtendedEvent              DescriptorTag = 0x4e
	DescriptorTagTimeShiftedEvent           DescriptorTag = 0x4f
	DescriptorTagComponent                  DescriptorTag = 0x50
	DescriptorTagMosaic                     DescriptorTag = 0x51
	DescriptorTagStreamIdentifier           DescriptorTag = 0x52
	DescriptorTagCAIdentifier               DescriptorTag = 0x53
	DescriptorTagContent                    DescriptorTag = 0x54
	DescriptorTagParentalRating             DescriptorTag = 0x55
	DescriptorTagTeletext                   DescriptorTag = 0x56
	DescriptorTagTelephone                  DescriptorTag = 0x57
	DescriptorTagLocalTimeOffset            DescriptorTag = 0x58
	DescriptorTagSubtitling                 DescriptorTag = 0x59
	DescriptorTagTerrestrialDeliverySystem  DescriptorTag = 0x5a
	DescriptorTagMultilingualNetworkName    DescriptorTag = 0x5b
	DescriptorTagMultilingualBouquetName    DescriptorTag = 0x5c
	DescriptorTagMultilingualServiceName    DescriptorTag = 0x5d
	DescriptorTagMultilingualComponent      DescriptorTag = 0x5e
	DescriptorTagPrivateDataSpecifier       DescriptorTag = 0x5f
	DescriptorTagServiceMove                DescriptorTag = 0x60
	DescriptorTagShortSmoothingBuffer       DescriptorTag = 0x61
	DescriptorTagFrequencyList              DescriptorTag = 0x62
	DescriptorTagPartialTransportStream     DescriptorTag = 0x63
	DescriptorTagDataBroadcast              DescriptorTag = 0x64
	DescriptorTagScrambling                 DescriptorTag = 0x65
	DescriptorTagDataBroadcastID            DescriptorTag = 0x66
	DescriptorTagTransportStream            DescriptorTag = 0x67
	DescriptorTagDSNG                       DescriptorTag = 0x68
	DescriptorTagPDC                        DescriptorTag = 0x69
	DescriptorTagAC3                        DescriptorTag = 0x6a
	DescriptorTagAncillaryData              DescriptorTag = 0x6b
	DescriptorTagCellList                   DescriptorTag = 0x6c
	DescriptorTagCellFrequencyLink          DescriptorTag = 0x6d
	DescriptorTagAnnouncementSupport        DescriptorTag = 0x6e
	DescriptorTagApplicationSignalling      DescriptorTag = 0x6f
	DescriptorTagAdaptationFieldData        DescriptorTag = 0x70
	DescriptorTagServiceIdentifier          DescriptorTag = 0x71
	DescriptorTagServiceAvailability        DescriptorTag = 0x72
	DescriptorTagDefaultAuthority           DescriptorTag = 0x73
	DescriptorTagRelatedContent             DescriptorTag = 0x74
	DescriptorTagTVAID                      DescriptorTag = 0x75
	DescriptorTagContentIdentifier          DescriptorTag = 0x76
	DescriptorTagTimeSliceFECIdentifier     DescriptorTag = 0x77
	DescriptorTagECMRepetitionRate          DescriptorTag = 0x78
	DescriptorTagS2SatelliteDeliverySystem  DescriptorTag = 0x79
	DescriptorTagEnhancedAC3                DescriptorTag = 0x7a
	DescriptorTagDTS                        DescriptorTag = 0x7b
	DescriptorTagAAC                        DescriptorTag = 0x7c
	DescriptorTagXAITLocation               DescriptorTag = 0x7d
	DescriptorTagFTAContentManagement       DescriptorTag = 0x7e
	DescriptorTagExtension                  DescriptorTag = 0x7f
	DescriptorTagISOIEC138186Start          DescriptorTag = 0x13
	DescriptorTagISOIEC138186End            DescriptorTag = 0x1a
	DescriptorTagUserDefinedStart           DescriptorTag = 0x80
	DescriptorTagUserDefinedEnd             DescriptorTag = 0xfe
	DescriptorTagForbidden                  DescriptorTag = 0xff
	descriptorTagMPEGReservedStart          DescriptorTag = 0x24
	descriptorTagMPEGReservedEnd            DescriptorTag = 0x3f
	descriptorTagDVBStart                   DescriptorTag = 0x40
	descriptorTagDVBEnd                     DescriptorTag = 0x7f
)

var descriptorTagNames = map[DescriptorTag]string{
	DescriptorTagVideoStream:                "video_stream",
	DescriptorTagAudioStream:                "audio_stream",
	DescriptorTagHierarchy:                  "hierarchy",
	DescriptorTagRegistration:               "registration",
	DescriptorTagDataStreamAlignment:        "data_stream_alignment",
	DescriptorTagTargetBackgroundGrid:       "target_background_grid",
	DescriptorTagVideoWindow:                "video_window",
	DescriptorTagCA:                         "CA",
	DescriptorTagISO639Language:             "ISO_639_language",
	DescriptorTagSystemClock:                "system_clock",
	DescriptorTagMultiplexBufferUtilization: "multiplex_buffer_utilization",
	DescriptorTagCopyright:                  "copyright",
	DescriptorTagMaximumBitrate:             "maximum_bitrate",
	DescriptorTagPrivateDataIndicator:       "private_data_indicator",
	DescriptorTagSmoothingBuffer:            "smoothing_buffer",
	DescriptorTagSTD:                        "STD",
	DescriptorTagIBP:                        "IBP",
	DescriptorTagMPEG4Video:                 "MPEG-4_video",
	DescriptorTagMPEG4Audio:                 "MPEG-4_audio",
	DescriptorTagIOD:                        "IOD",
	DescriptorTagSL:                         "SL",
	DescriptorTagFMC:                        "FMC",
	DescriptorTagExternalESID:               "External_ES_ID",
	DescriptorTagMuxCode:                    "MuxCode",
	DescriptorTagFmxBufferSize:              "FmxBufferSize",
	DescriptorTagMultiplexBuffer:            "MultiplexBuffer",
	DescriptorTagNetworkName:                "network_name",
	DescriptorTagServiceList:                "service_list",
	DescriptorTagStuffing:                   "stuffing",
	DescriptorTagSatelliteDeliverySystem:    "satellite_delivery_system",
	DescriptorTagCableDeliverySystem:        "cable_delivery_system",
	DescriptorTagVBIData:                    "VBI_data",
	DescriptorTagVBITeletext:                "VBI_teletext",
	DescriptorTagBouquetName:                "bouquet_name",
	DescriptorTagService:                    "service",
	DescriptorTagCountryAvailability:        "country_availability",
	DescriptorTagLinkage:                    "linkage",
	DescriptorTagNVODReference:              "NVOD_reference",
	DescriptorTagTimeShiftedService:         "time_shifted_service",
	DescriptorTagShortEvent:                 "short_event",
	DescriptorTagExtendedEvent:              "extended_event",
	DescriptorTagTimeShiftedEvent:           "time_shifted_event",
	DescriptorTagComponent:                  "component",
	DescriptorTagMosaic:                     "mosaic",
	DescriptorTagStreamIdentifier:           "stream_identifier",
	DescriptorTagCAIdentifier:               "CA_identifier",
	DescriptorTagContent:                    "content",
	DescriptorTagParentalRating:             "parental_rating",
	DescriptorTagTeletext:                   "teletext",
	DescriptorTagTelephone:                  "telephone",
	DescriptorTagLocalTimeOffset:            "local_time_offset",
	DescriptorTagSubtitling:                 "subtitling",
	DescriptorTagTerrestrialDeliverySystem:  "terrestrial_delivery_system",
	DescriptorTagMultilingualNetworkName:    "multilingual_network_name",
	DescriptorTagMultilingualBouquetName:    "multilingual_bouquet_name",
	DescriptorTagMultilingualServiceName:    "multilingual_service_name",
	DescriptorTagMultilingualComponent:      "multilingual_component",
	DescriptorTagPrivateDataSpecifier:       "private_data_specifier",
	DescriptorTagServiceMove:                "service_move",
	DescriptorTagShortSmoothingBuffer:       "short_smoothing_buffer",
	DescriptorTagFrequencyList:              "frequency_list",
	DescriptorTagPartialTransportStream:     "partial_transport_stream",
	DescriptorTagDataBroadcast:              "data_broadcast",
	DescriptorTagScrambling:                 "scrambling",
	DescriptorTagDataBroadcastID:            "data_broadcast_id",
	DescriptorTagTransportStream:            "transport_stream",
	DescriptorTagDSNG:                       "DSNG",
	DescriptorTagPDC:                        "PDC",
	DescriptorTagAC3:                        "AC-3",
	DescriptorTagAncillaryData:              "ancillary_data",
	DescriptorTagCellList:                   "cell_list",
	DescriptorTagCellFrequencyLink:          "cell_frequency_link",
	DescriptorTagAnnouncementSupport:        "announcement_support",
	DescriptorTagApplicationSignalling:      "application_signalling",
	DescriptorTagAdaptationFieldData:        "adaptation_field_data",
	DescriptorTagServiceIdentifier:          "service_identifier",
	DescriptorTagServiceAvailability:        "service_availability",
	DescriptorTagDefaultAuthority:           "default_authority",
	DescriptorTagRelatedContent:             "related_content",
	DescriptorTagTVAID:                      "TVA_id",
	DescriptorTagContentIdentifier:          "content_identifier",
	DescriptorTagTimeSliceFECIdentifier:     "time_slice_fec_identifier",
	DescriptorTagECMRepetitionRate:          "ECM_repetition_rate",
	DescriptorTagS2SatelliteDeliverySystem:  "S2_satellite_delivery_system",
	DescriptorTagEnhancedAC3:                "enhanced_AC-3",
	DescriptorTagDTS:                        "DTS",
	DescriptorTagAAC:                        "AAC",
	DescriptorTagXAITLocation:               "XAIT_location",
	DescriptorTagFTAContentManagement:       "FTA_content_management",
	DescriptorTagExtension:                  "extension",
}

// DescriptorRange represents the range of the tag space a descriptor tag belongs to
type DescriptorRange uint8

// Descriptor ranges
const (
	DescriptorRangeReserved DescriptorRange = iota
	DescriptorRangeMPEG
	DescriptorRangeDVB
	DescriptorRangeUserDefined
	DescriptorRangeForbidden
)

// String implements the Stringer interface
func (r DescriptorRange) String() string {
	switch r {
	case DescriptorRangeReserved:
		return "reserved"
	case DescriptorRangeMPEG:
		return "ISO/IEC 13818-1"
	case DescriptorRangeDVB:
		return "EN 300 468"
	case DescriptorRangeUserDefined:
		return "user defined"
	case DescriptorRangeForbidden:
		return "forbidden"
	}
	return fmt.Sprintf("unknown descriptor range %d", uint8(r))
}

// Range returns the range of the tag space the tag belongs to
func (t DescriptorTag) Range() DescriptorRange {
	switch {
	case t == 0x00, t == 0x01:
		return DescriptorRangeReserved
	case t >= descriptorTagMPEGReservedStart && t <= descriptorTagMPEGReservedEnd:
		return DescriptorRangeReserved
	case t < descriptorTagMPEGReservedStart:
		return DescriptorRangeMPEG
	case t >= descriptorTagDVBStart && t <= descriptorTagDVBEnd:
		return DescriptorRangeDVB
	case t >= DescriptorTagUserDefinedStart && t <= DescriptorTagUserDefinedEnd:
		return DescriptorRangeUserDefined
	}
	return DescriptorRangeForbidden
}

// String implements the Stringer interface
func (t DescriptorTag) String() string {
	if n, ok := descriptorTagNames[t]; ok {
		return n
	}
	switch {
	case t >= DescriptorTagISOIEC138186Start && t <= DescriptorTagISOIEC138186End:
		return "ISO/IEC_13818-6"
	case t.Range() == DescriptorRangeReserved:
		return fmt.Sprintf("reserved_0x%.2x", uint8(t))
	case t.Range() == DescriptorRangeUserDefined:
		return fmt.Sprintf("user_defined_0x%.2x", uint8(t))
	}
	return "forbidden"
}

// Descriptor represents a descriptor.
// Data always holds the raw payload and points to the section buffer. Typed fields are only
// set for modeled tags.
type Descriptor struct {
	Data    []byte
	Length  uint8
	Service *ServiceDescriptor
	Tag     DescriptorTag // the tag defines the structure of the contained data following the descriptor length.
}

// newDescriptor dispatches a descriptor payload to the decoder matching its tag. Unmodeled
// tags never fail.
func newDescriptor(tag DescriptorTag, data []byte) (d *Descriptor, err error) {
	d = &Descriptor{
		Data:   data,
		Length: uint8(len(data)),
		Tag:    tag,
	}

	// Switch on tag
	switch tag {
	case DescriptorTagService:
		if d.Service, err = newServiceDescriptor(tag, data); err != nil {
			err = fmt.Errorf("astisdt: parsing %s descriptor failed: %w", tag, err)
			return
		}
	}
	return
}

// String implements the Stringer interface
func (d *Descriptor) String() string {
	if d.Service != nil {
		return d.Service.String()
	}
	return fmt.Sprintf("%s (0x%.2x): %d bytes", d.Tag, uint8(d.Tag), len(d.Data))
}

// DescriptorIterator walks a descriptor loop without copying it.
// It is created from a buffer and can't be rewound: create a new one to iterate again.
type DescriptorIterator struct {
	err error
	i   *astikit.BytesIterator
}

func newDescriptorIterator(bs []byte) *DescriptorIterator {
	return &DescriptorIterator{i: astikit.NewBytesIterator(bs)}
}

// Next returns the next descriptor or ErrNoMoreDescriptors once the loop is exhausted.
// Once a malformed descriptor is met, the same error is returned on every call.
func (it *DescriptorIterator) Next() (d *Descriptor, err error) {
	// Sticky error
	if it.err != nil {
		err = it.err
		return
	}

	// No more descriptors
	if !it.i.HasBytesLeft() {
		err = ErrNoMoreDescriptors
		return
	}

	// Check header
	if left := it.i.Len() - it.i.Offset(); left < 2 {
		it.err = fmt.Errorf("astisdt: %d byte(s) left, descriptor header needs 2: %w", left, ErrMalformedDescriptorLoop)
		err = it.err
		return
	}

	// Get header
	var bs []byte
	if bs, err = it.i.NextBytesNoCopy(2); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}
	tag, length := DescriptorTag(bs[0]), int(bs[1])

	// Check payload
	if left := it.i.Len() - it.i.Offset(); left < length {
		it.err = fmt.Errorf("astisdt: %s descriptor length %d exceeds the %d byte(s) left: %w", tag, length, left, ErrMalformedDescriptorLoop)
		err = it.err
		return
	}

	// Get payload
	if bs, err = it.i.NextBytesNoCopy(length); err != nil {
		err = fmt.Errorf("astisdt: fetching next bytes failed: %w", err)
		return
	}

	// Dispatch
	if d, err = newDescriptor(tag, bs); err != nil {
		err = fmt.Errorf("astisdt: creating descriptor failed: %w", err)
		return
	}
	return
}

// All returns every remaining descriptor
func (it *DescriptorIterator) All() (ds []*Descriptor, err error) {
	for {
		var d *Descriptor
		if d, err = it.Next(); err != nil {
			if err == ErrNoMoreDescriptors {
				err = nil
			}
			return
		}
		ds = append(ds, d)
	}
}

func descriptorsToString(it *DescriptorIterator) string {
	var ss []string
	for {
		d, err := it.Next()
		if err != nil {
			if err != ErrNoMoreDescriptors {
				ss = append(ss, fmt.Sprintf("<%s>", err))
			}
			break
		}
		ss = append(ss, d.String())
	}
	return "[" + strings.Join(ss, ", ") + "]"
}
