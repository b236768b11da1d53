package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/maidsafe/routing-model/internal/simulator"
	"github.com/maidsafe/routing-model/routing"
)

type memberConfig struct {
	Node  routing.Node
	Elder bool
}

type simConfig struct {
	OurAttributes  routing.Attributes
	TargetInterval routing.Name
	Members        []memberConfig
	Timeouts       simulator.Timeouts
	QueueSize      int
	RunFor         time.Duration
	TraceDB        string
	TraceLabel     string
}

// defaultSimConfig is a small demo section: three elders and one adult whose
// work units will eventually trigger a relocation attempt.
func defaultSimConfig() simConfig {
	return simConfig{
		OurAttributes:  routing.Attributes{Age: 32, Name: 132},
		TargetInterval: routing.Name(1234),
		Members: []memberConfig{
			{Node: routing.Node{Attributes: routing.Attributes{Age: 30, Name: 130}}, Elder: true},
			{Node: routing.Node{Attributes: routing.Attributes{Age: 31, Name: 131}}, Elder: true},
			{Node: routing.Node{Attributes: routing.Attributes{Age: 32, Name: 132}}, Elder: true},
			{Node: routing.Node{Attributes: routing.Attributes{Age: 5, Name: 205}}},
		},
		Timeouts:   simulator.DefaultTimeouts(),
		QueueSize:  1024,
		RunFor:     0,
		TraceDB:    "",
		TraceLabel: "routingsim",
	}
}

type fileMember struct {
	Name  int  `toml:"name"`
	Age   int  `toml:"age"`
	Elder bool `toml:"elder"`
}

type fileTimeouts struct {
	WorkUnit       string `toml:"work_unit"`
	CheckRelocate  string `toml:"check_relocate"`
	CheckElder     string `toml:"check_elder"`
	NodeConnection string `toml:"node_connection"`
	ResourceProof  string `toml:"resource_proof"`
	Accept         string `toml:"accept"`
}

type fileConfig struct {
	OurName        int          `toml:"our_name"`
	OurAge         int          `toml:"our_age"`
	TargetInterval int          `toml:"target_interval"`
	Members        []fileMember `toml:"member"`
	Timeouts       fileTimeouts `toml:"timeouts"`
	QueueSize      int          `toml:"queue_size"`
	RunFor         string       `toml:"run_for"`
	TraceDB        string       `toml:"trace_db"`
	TraceLabel     string       `toml:"trace_label"`
}

func loadSimConfig(path string) (simConfig, error) {
	cfg := defaultSimConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return simConfig{}, fmt.Errorf("load sim config: %w", err)
	}

	if meta.IsDefined("our_name") {
		cfg.OurAttributes.Name = routing.Name(raw.OurName)
	}
	if meta.IsDefined("our_age") {
		cfg.OurAttributes.Age = routing.Age(raw.OurAge)
	}
	if meta.IsDefined("target_interval") {
		cfg.TargetInterval = routing.Name(raw.TargetInterval)
	}

	if meta.IsDefined("member") {
		cfg.Members = make([]memberConfig, 0, len(raw.Members))
		for _, member := range raw.Members {
			cfg.Members = append(cfg.Members, memberConfig{
				Node:  routing.Node{Attributes: routing.Attributes{Age: routing.Age(member.Age), Name: routing.Name(member.Name)}},
				Elder: member.Elder,
			})
		}
	}

	if err := overlayTimeouts(&cfg.Timeouts, meta, raw.Timeouts); err != nil {
		return simConfig{}, err
	}

	if meta.IsDefined("queue_size") && raw.QueueSize > 0 {
		cfg.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("run_for") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RunFor))
		if err != nil {
			return simConfig{}, fmt.Errorf("parse run_for: %w", err)
		}
		cfg.RunFor = d
	}
	if meta.IsDefined("trace_db") {
		cfg.TraceDB = strings.TrimSpace(raw.TraceDB)
	}
	if meta.IsDefined("trace_label") {
		label := strings.TrimSpace(raw.TraceLabel)
		if label != "" {
			cfg.TraceLabel = label
		}
	}

	return cfg, nil
}

func overlayTimeouts(timeouts *simulator.Timeouts, meta toml.MetaData, raw fileTimeouts) error {
	entries := []struct {
		key   string
		value string
		out   *time.Duration
	}{
		{"work_unit", raw.WorkUnit, &timeouts.WorkUnit},
		{"check_relocate", raw.CheckRelocate, &timeouts.CheckRelocate},
		{"check_elder", raw.CheckElder, &timeouts.CheckElder},
		{"node_connection", raw.NodeConnection, &timeouts.NodeConnection},
		{"resource_proof", raw.ResourceProof, &timeouts.ResourceProof},
		{"accept", raw.Accept, &timeouts.Accept},
	}
	for _, entry := range entries {
		if !meta.IsDefined("timeouts", entry.key) {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(entry.value))
		if err != nil {
			return fmt.Errorf("parse timeouts.%s: %w", entry.key, err)
		}
		*entry.out = d
	}
	return nil
}

func buildMemberState(cfg simConfig) *routing.MemberState {
	action := routing.NewAction(cfg.OurAttributes).WithNextTargetInterval(cfg.TargetInterval)
	for _, member := range cfg.Members {
		action = action.ExtendCurrentNodesWith(routing.MemberInfo{IsElder: member.Elder}, member.Node)
	}
	return routing.NewMemberState(action)
}
