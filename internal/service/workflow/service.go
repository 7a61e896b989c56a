// Package workflow joins departmental records by lab number to drive the
// clinical review queue.
package workflow

import (
	"context"
	"sort"
	"time"

	"github.com/RyneJoanams/gulf-main-sub001/internal/model"
	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"
)

// QueueEntry is one lab number and the departmental records filed under it.
type QueueEntry struct {
	LabNumber     string                 `json:"labNumber"`
	PatientName   string                 `json:"patientName"`
	Lab           *model.LabReport       `json:"lab"`
	Radiology     *model.RadiologyReport `json:"radiology"`
	Phlebotomy    *model.Phlebotomy      `json:"phlebotomy"`
	HasLab        bool                   `json:"hasLab"`
	HasRadiology  bool                   `json:"hasRadiology"`
	HasPhlebotomy bool                   `json:"hasPhlebotomy"`
	LastUpdated   time.Time              `json:"lastUpdated"`
	Clinical      *model.ClinicalReport  `json:"clinical,omitempty"`
	Processed     bool                   `json:"processed"`
	autoProcessed bool
}

type Service struct {
	labs       repository.Collection[model.LabReport]
	radiology  repository.Collection[model.RadiologyReport]
	phlebotomy repository.Collection[model.Phlebotomy]
	clinicals  repository.Collection[model.ClinicalReport]
}

func NewService(
	labs repository.Collection[model.LabReport],
	radiology repository.Collection[model.RadiologyReport],
	phlebotomy repository.Collection[model.Phlebotomy],
	clinicals repository.Collection[model.ClinicalReport],
) *Service {
	return &Service{
		labs:       labs,
		radiology:  radiology,
		phlebotomy: phlebotomy,
		clinicals:  clinicals,
	}
}

// Queue returns lab numbers that still await a clinical report, newest
// activity first.
func (s *Service) Queue(ctx context.Context) ([]*QueueEntry, error) {
	groups, err := s.groups(ctx)
	if err != nil {
		return nil, err
	}
	processed, err := s.processedSet(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*QueueEntry, 0, len(groups))
	for base, e := range groups {
		if processed[base] || e.autoProcessed {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].LabNumber < out[j].LabNumber
	})
	return out, nil
}

// Processed returns the sorted base lab numbers that have a clinical report
// or an auto-processed record.
func (s *Service) Processed(ctx context.Context) ([]string, error) {
	set, err := s.processedSet(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups(ctx)
	if err != nil {
		return nil, err
	}
	for base, e := range groups {
		if e.autoProcessed {
			set[base] = true
		}
	}

	out := make([]string, 0, len(set))
	for base := range set {
		out = append(out, base)
	}
	sort.Strings(out)
	return out, nil
}

// Record returns the merged view of one lab number, including its clinical
// report when there is one.
func (s *Service) Record(ctx context.Context, labNumber string) (*QueueEntry, error) {
	base := labnumber.Base(labNumber)
	if base == "" {
		return nil, errors.BadRequest("lab number is required", nil)
	}
	groups, err := s.groups(ctx)
	if err != nil {
		return nil, err
	}
	clinicals, err := s.clinicals.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}

	entry := groups[base]
	for _, c := range clinicals {
		if labnumber.Base(c.LabNumber) != base {
			continue
		}
		if entry == nil {
			entry = &QueueEntry{LabNumber: base, PatientName: c.PatientName}
		}
		// Lists are newest first; keep the latest report.
		if entry.Clinical == nil {
			entry.Clinical = c
		}
	}
	if entry == nil {
		return nil, errors.NotFound("lab number "+base, nil)
	}
	entry.Processed = entry.Clinical != nil || entry.autoProcessed
	return entry, nil
}

func (s *Service) processedSet(ctx context.Context) (map[string]bool, error) {
	clinicals, err := s.clinicals.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}
	set := make(map[string]bool, len(clinicals))
	for _, c := range clinicals {
		if base := labnumber.Base(c.LabNumber); base != "" {
			set[base] = true
		}
	}
	return set, nil
}

// groups buckets lab, radiology and phlebotomy records by base lab number.
// Each list is newest first, so the first record seen per group is kept.
func (s *Service) groups(ctx context.Context) (map[string]*QueueEntry, error) {
	labs, err := s.labs.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}
	rads, err := s.radiology.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}
	phlebs, err := s.phlebotomy.List(ctx, repository.Query{})
	if err != nil {
		return nil, errors.Internal(err)
	}

	groups := make(map[string]*QueueEntry)
	entry := func(ln string, updated time.Time) *QueueEntry {
		base := labnumber.Base(ln)
		if base == "" {
			return nil
		}
		e, ok := groups[base]
		if !ok {
			e = &QueueEntry{LabNumber: base}
			groups[base] = e
		}
		if updated.After(e.LastUpdated) {
			e.LastUpdated = updated
		}
		if labnumber.IsAutoProcessed(ln) {
			e.autoProcessed = true
		}
		return e
	}

	for _, r := range labs {
		if e := entry(r.LabNumber, r.UpdatedAt); e != nil && e.Lab == nil {
			e.Lab, e.HasLab = r, true
		}
	}
	for _, r := range rads {
		if e := entry(r.LabNumber, r.UpdatedAt); e != nil && e.Radiology == nil {
			e.Radiology, e.HasRadiology = r, true
		}
	}
	for _, r := range phlebs {
		if e := entry(r.LabNumber, r.UpdatedAt); e != nil && e.Phlebotomy == nil {
			e.Phlebotomy, e.HasPhlebotomy = r, true
		}
	}

	for _, e := range groups {
		switch {
		case e.Lab != nil && e.Lab.PatientName != "":
			e.PatientName = e.Lab.PatientName
		case e.Radiology != nil && e.Radiology.PatientName != "":
			e.PatientName = e.Radiology.PatientName
		case e.Phlebotomy != nil:
			e.PatientName = e.Phlebotomy.PatientName
		}
	}
	return groups, nil
}
