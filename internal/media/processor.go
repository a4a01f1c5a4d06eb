// Package media runs media operations end to end: translate the request,
// build the command, execute it and report the result.
package media

import (
	"context"

	"github.com/maauso/mediaforge-api/internal/command"
	"github.com/maauso/mediaforge-api/internal/operation"
	"github.com/maauso/mediaforge-api/internal/runner"
)

// Processor executes operation requests.
type Processor interface {
	// Execute validates and runs req. A validation failure is returned as an
	// error and nothing is spawned; once the process has been started every
	// outcome, including failure, is reported through Result.
	Execute(ctx context.Context, req operation.Request) (Result, error)

	// Plan returns the command Execute would run, without running it.
	Plan(req operation.Request) (command.Command, error)
}

// Executor runs one command. *runner.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, args []string) runner.Outcome
}
