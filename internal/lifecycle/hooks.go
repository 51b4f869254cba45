// Package lifecycle stops the bot's components in an orderly way.
package lifecycle

import "context"

// Hook describes a named shutdown hook. Hooks in a lower phase finish before the next phase starts.
type Hook struct {
	Name  string
	Phase int
	Fn    func(ctx context.Context) error
}

const (
	// PhaseIngress stops accepting new updates and HTTP requests.
	PhaseIngress = iota
	// PhaseWorkers stops background sweepers and collectors.
	PhaseWorkers
	// PhaseResources closes connections and flushes buffers.
	PhaseResources
)
