package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asticode/go-astisdt"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Network represents the services of one SDT, either actual or other
type Network struct {
	OriginalNetworkID uint16     `json:"original_network_id"`
	Other             bool       `json:"other"`
	Services          []*Service `json:"services,omitempty"`
	services          map[uint16]*Service
}

// Service represents a service
type Service struct {
	Descriptors         []string `json:"descriptors,omitempty"`
	EITPresentFollowing bool     `json:"eit_present_following"`
	EITSchedule         bool     `json:"eit_schedule"`
	FreeCAMode          bool     `json:"free_ca_mode"`
	ID                  uint16   `json:"id"`
	Name                string   `json:"name,omitempty"`
	Provider            string   `json:"provider,omitempty"`
	RunningStatus       string   `json:"running_status"`
	Type                string   `json:"type,omitempty"`
}

type networkKey struct {
	originalNetworkID uint16
	other             bool
}

// collector gathers services from routed sections. Sections are only valid during the
// consumer call so everything is copied out of them.
type collector struct {
	c        Configuration
	err      error
	networks map[networkKey]*Network
}

func newCollector(c Configuration) *collector {
	return &collector{
		c:        c,
		networks: make(map[networkKey]*Network),
	}
}

func (c *collector) decodeMode() astisdt.DecodeMode {
	if c.c.Strict {
		return astisdt.DecodeModeStrict
	}
	return astisdt.DecodeModeReplace
}

func (c *collector) consume(s astisdt.ActualOther[*astisdt.SDTSection]) {
	// Only the first error is kept
	if c.err != nil || !c.c.acceptsTable(s.IsOther()) {
		return
	}
	if err := c.add(s.IsOther(), s.Value()); err != nil {
		c.err = fmt.Errorf("astisdt: adding %s section failed: %w", s, err)
	}
}

func (c *collector) add(other bool, sdt *astisdt.SDTSection) (err error) {
	// Get network
	k := networkKey{originalNetworkID: sdt.OriginalNetworkID(), other: other}
	n, ok := c.networks[k]
	if !ok {
		n = &Network{
			OriginalNetworkID: k.originalNetworkID,
			Other:             other,
			services:          make(map[uint16]*Service),
		}
		c.networks[k] = n
	}

	// Loop through services
	it := sdt.Services()
	for {
		// Get next service
		var sv *astisdt.Service
		if sv, err = it.Next(); err != nil {
			if errors.Is(err, astisdt.ErrNoMoreServices) {
				err = nil
				break
			}
			err = fmt.Errorf("astisdt: getting next service failed: %w", err)
			if c.c.Strict {
				return
			}
			logWarn(err)
			err = nil
			break
		}

		// Build service
		var s *Service
		if s, err = c.newService(sv); err != nil {
			err = fmt.Errorf("astisdt: building service %d failed: %w", sv.ServiceID(), err)
			return
		}

		// Later sections override earlier ones
		n.services[s.ID] = s
	}
	return
}

func (c *collector) newService(sv *astisdt.Service) (s *Service, err error) {
	s = &Service{
		EITPresentFollowing: sv.HasEITPresentFollowing(),
		EITSchedule:         sv.HasEITSchedule(),
		FreeCAMode:          sv.HasFreeCAMode(),
		ID:                  sv.ServiceID(),
		RunningStatus:       sv.RunningStatus().String(),
	}

	// Loop through descriptors
	it := sv.Descriptors()
	for {
		// Get next descriptor
		var d *astisdt.Descriptor
		if d, err = it.Next(); err != nil {
			if errors.Is(err, astisdt.ErrNoMoreDescriptors) {
				err = nil
				break
			}
			if c.c.Strict {
				err = fmt.Errorf("astisdt: getting next descriptor failed: %w", err)
				return
			}
			logWarn(fmt.Errorf("astisdt: getting next descriptor of service %d failed: %w", s.ID, err))
			if errors.Is(err, astisdt.ErrMalformedDescriptorLoop) {
				err = nil
				break
			}
			continue
		}

		// Service descriptor
		if d.Service != nil {
			s.Type = d.Service.ServiceType().String()
			if s.Provider, err = c.decodeName(d.Service.ServiceProviderName()); err != nil {
				err = fmt.Errorf("astisdt: decoding service provider name failed: %w", err)
				return
			}
			if s.Name, err = c.decodeName(d.Service.ServiceName()); err != nil {
				err = fmt.Errorf("astisdt: decoding service name failed: %w", err)
				return
			}
			continue
		}
		s.Descriptors = append(s.Descriptors, d.String())
	}
	return
}

// decodeName decodes a name field. Empty names are not an error for the probe.
func (c *collector) decodeName(t astisdt.Text, err error) (string, error) {
	if err != nil {
		var ed *astisdt.NotEnoughDataError
		if errors.As(err, &ed) && ed.Expected == 1 && ed.Available == 0 {
			return "", nil
		}
		if c.c.Strict {
			return "", err
		}
		return fmt.Sprintf("<%s>", err), nil
	}
	s, err := t.Decode(c.decodeMode())
	if err != nil {
		if c.c.Strict {
			return "", err
		}
		return t.String(), nil
	}
	return s, nil
}

// sortedNetworks returns networks sorted by table then original network id, with their services
// sorted by id
func (c *collector) sortedNetworks() (ns []*Network) {
	ks := maps.Keys(c.networks)
	slices.SortFunc(ks, func(a, b networkKey) bool {
		if a.other != b.other {
			return !a.other
		}
		return a.originalNetworkID < b.originalNetworkID
	})
	for _, k := range ks {
		n := c.networks[k]
		ids := maps.Keys(n.services)
		slices.Sort(ids)
		n.Services = n.Services[:0]
		for _, id := range ids {
			n.Services = append(n.Services, n.services[id])
		}
		ns = append(ns, n)
	}
	return
}

// String implements the Stringer interface
func (n Network) String() (o string) {
	t := tableActual
	if n.Other {
		t = tableOther
	}
	o = fmt.Sprintf("[%s] - Original network ID: %d", t, n.OriginalNetworkID)
	for _, s := range n.Services {
		o += fmt.Sprintf("\n  * %s", s)
	}
	return
}

// String implements the Stringer interface
func (s Service) String() (o string) {
	o = fmt.Sprintf("[%d] - Name: %q - Provider: %q - Type: %s - Running status: %s", s.ID, s.Name, s.Provider, s.Type, s.RunningStatus)
	if s.FreeCAMode {
		o += " - Scrambled"
	}
	if len(s.Descriptors) > 0 {
		o += " - " + strings.Join(s.Descriptors, " - ")
	}
	return
}
