package deploy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeploymentsTotal tracks successful contract deployments.
	DeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_deploy_deployments_total",
		Help: "Total number of contracts deployed",
	}, []string{"contract", "network"})

	// DeploymentFailuresTotal tracks failed deployment transactions.
	DeploymentFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_deploy_failures_total",
		Help: "Total number of failed contract deployments",
	}, []string{"contract"})

	// VerificationFailuresTotal tracks explorer verifications that failed after deployment.
	VerificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_deploy_verification_failures_total",
		Help: "Total number of failed source verifications",
	}, []string{"contract"})
)
