package preflight

import (
	"context"
	"fmt"

	"filerelay/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// State directory holds the journal, lock, and inbound attachments.
	minState := uint64(0)
	if cfg.Transport.MaxMessageBytes > 0 {
		minState = uint64(cfg.Transport.MaxMessageBytes)
	}
	results = append(results,
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("State directory free space", cfg.Paths.StateDir, minState),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	)

	for _, key := range cfg.OutboundKeys() {
		route := cfg.OutboundRoutes[key]
		results = append(results, CheckDirectoryAccess(fmt.Sprintf("Outbound %s search directory", key), route.SearchDirectory))
	}

	for _, key := range cfg.InboundKeys() {
		route := cfg.InboundRoutes[key]
		results = append(results,
			CheckDirectoryAccess(fmt.Sprintf("Inbound %s destination", key), route.DestinationDirectory),
			CheckFreeSpace(fmt.Sprintf("Inbound %s free space", key), route.DestinationDirectory, minState),
		)
	}

	switch cfg.Transport.Kind {
	case config.TransportAMQP:
		results = append(results, CheckBroker(ctx, cfg.Transport.AMQPURL))
	default:
		for _, party := range peerParties(cfg) {
			results = append(results, CheckPeer(ctx, party, cfg.Transport.Peers[party]))
		}
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// peerParties lists the distinct destination parties of outbound routes.
func peerParties(cfg *config.Config) []string {
	seen := make(map[string]struct{})
	var parties []string
	for _, key := range cfg.OutboundKeys() {
		party := cfg.OutboundRoutes[key].DestinationParty
		if _, ok := seen[party]; ok {
			continue
		}
		seen[party] = struct{}{}
		parties = append(parties, party)
	}
	return parties
}
