// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gopkg.in/yaml.v3"

	"github.com/juju/vixdriver/internal/compute"
)

type infoOutput struct {
	State    string `yaml:"state"`
	VCPUs    int    `yaml:"vcpus"`
	MemoryMB int    `yaml:"memory-mb"`
}

type vncOutput struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type resourcesOutput struct {
	VCPUs              int    `yaml:"vcpus"`
	VCPUsUsed          int    `yaml:"vcpus-used"`
	MemoryMB           uint64 `yaml:"memory-mb"`
	MemoryMBUsed       uint64 `yaml:"memory-mb-used"`
	LocalGB            uint64 `yaml:"local-gb"`
	LocalGBUsed        uint64 `yaml:"local-gb-used"`
	HypervisorType     string `yaml:"hypervisor-type"`
	HypervisorVersion  int    `yaml:"hypervisor-version"`
	HypervisorHostname string `yaml:"hypervisor-hostname"`
}

type statsOutput struct {
	MemoryTotalMB        uint64   `yaml:"memory-total-mb"`
	MemoryOverheadMB     uint64   `yaml:"memory-overhead-mb"`
	MemoryFreeMB         uint64   `yaml:"memory-free-mb"`
	MemoryFreeComputedMB uint64   `yaml:"memory-free-computed-mb"`
	DiskTotalGB          uint64   `yaml:"disk-total-gb"`
	DiskUsedGB           uint64   `yaml:"disk-used-gb"`
	DiskAvailableGB      uint64   `yaml:"disk-available-gb"`
	HypervisorHostname   string   `yaml:"hypervisor-hostname"`
	SupportedInstances   []string `yaml:"supported-instances"`
	UpdatedAt            string   `yaml:"updated-at"`
}

func formatInfo(info compute.InstanceInfo) infoOutput {
	return infoOutput{
		State:    string(info.State),
		VCPUs:    info.NumVCPUs,
		MemoryMB: info.MemoryMB,
	}
}

func formatResources(r compute.AvailableResource) resourcesOutput {
	return resourcesOutput{
		VCPUs:              r.VCPUs,
		VCPUsUsed:          r.VCPUsUsed,
		MemoryMB:           r.MemoryMB,
		MemoryMBUsed:       r.MemoryMBUsed,
		LocalGB:            r.LocalGB,
		LocalGBUsed:        r.LocalGBUsed,
		HypervisorType:     r.HypervisorType,
		HypervisorVersion:  r.HypervisorVersion,
		HypervisorHostname: r.HypervisorHostname,
	}
}

func formatStats(s compute.HostStats) statsOutput {
	out := statsOutput{
		MemoryTotalMB:        s.MemoryTotalMB,
		MemoryOverheadMB:     s.MemoryOverheadMB,
		MemoryFreeMB:         s.MemoryFreeMB,
		MemoryFreeComputedMB: s.MemoryFreeComputedMB,
		DiskTotalGB:          s.DiskTotalGB,
		DiskUsedGB:           s.DiskUsedGB,
		DiskAvailableGB:      s.DiskAvailableGB,
		HypervisorHostname:   s.HypervisorHostname,
		UpdatedAt:            s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, si := range s.SupportedInstances {
		out.SupportedInstances = append(out.SupportedInstances, fmt.Sprintf("%s/%s/%s", si.Arch, si.HypervisorType, si.VMMode))
	}
	return out
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(enc.Close())
}

// writeMetrics prints every sample gathered from g, one per line, in
// the form name{label="value",...} value.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Annotate(err, "gathering metrics")
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(w, "%s %g\n", name, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", mf.GetName(), formatLabels(m.GetLabel()), h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", mf.GetName(), formatLabels(m.GetLabel()), h.GetSampleSum())
			}
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}
