package backend

import (
	"fmt"

	"lifeline/internal/domain"
)

func PersonaDeletedMessage(name string, deps domain.Dependencies) string {
	if !deps.HasDependencies {
		return fmt.Sprintf("persona %q deleted", name)
	}
	return fmt.Sprintf("persona %q deleted along with %d workstream(s) and %d task(s)", name, deps.WorkstreamCount, deps.TaskCount)
}

func WorkstreamDeletedMessage(name string, deps domain.Dependencies) string {
	if !deps.HasDependencies {
		return fmt.Sprintf("workstream %q deleted", name)
	}
	return fmt.Sprintf("workstream %q deleted along with %d task(s)", name, deps.TaskCount)
}

func TaskDeletedMessage(title string) string {
	return fmt.Sprintf("task %q deleted", title)
}
