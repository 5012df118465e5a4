package install

import (
	"context"

	"github.com/jingkaihe/agentkit/pkg/agents"
	"github.com/jingkaihe/agentkit/pkg/logger"
)

// InstallAgent writes the agent's document into the project
func (i *Installer) InstallAgent(ctx context.Context, agent *agents.Agent) (Outcome, error) {
	if err := agents.ValidateName(agent.Name); err != nil {
		return "", err
	}

	ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("agent", agent.Name))
	return i.ensureArtifact(ctx, i.layout.AgentPath(agent.Name), agent.Document(), 0o644)
}

// RemoveAgent deletes an installed agent document
func (i *Installer) RemoveAgent(ctx context.Context, name string) (Outcome, error) {
	if err := agents.ValidateName(name); err != nil {
		return "", err
	}
	return removeArtifact(ctx, i.layout.AgentPath(name))
}
