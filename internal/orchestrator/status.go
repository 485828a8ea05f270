package orchestrator

import "github.com/rxtech-lab/universal-launchpad/internal/models"

// Consolidate computes the terminal status of a finished saga:
//   - failed when the hub never produced a usable proxy
//   - completed when the hub is deployed and owned, neither mint nor allocation failed,
//     and every spoke is deployed, connected, set up and owned
//   - partial otherwise
func Consolidate(d *models.UniversalDeployment) models.DeploymentStatus {
	if d.HubStatus != models.StepStatusCompleted || d.HubProxyAddress == "" {
		return models.DeploymentStatusFailed
	}

	if d.HubOwnershipStatus != models.StepStatusCompleted ||
		d.HubMintStatus == models.StepStatusFailed ||
		d.AllocationStatus == models.StepStatusFailed {
		return models.DeploymentStatusPartial
	}

	for _, spoke := range d.Spokes {
		if spoke.DeployStatus != models.StepStatusCompleted ||
			spoke.ConnectionStatus != models.StepStatusCompleted ||
			spoke.SetupStatus != models.StepStatusCompleted ||
			spoke.OwnershipStatus != models.StepStatusCompleted {
			return models.DeploymentStatusPartial
		}
	}
	return models.DeploymentStatusCompleted
}
