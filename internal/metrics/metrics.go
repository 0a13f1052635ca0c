package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 核心隔离子系统的观测指标
var (
	RoutingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petshop",
		Subsystem: "router",
		Name:      "failures_total",
		Help:      "Routing failures by reason (empty context, inactive tenant).",
	}, []string{"reason"})

	CrossTenantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petshop",
		Subsystem: "gateway",
		Name:      "cross_tenant_violations_total",
		Help:      "Rejected cross-tenant references and mismatched stamps.",
	}, []string{"table"})

	ProvisioningTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petshop",
		Subsystem: "provisioning",
		Name:      "runs_total",
		Help:      "Tenant provisioning outcomes.",
	}, []string{"result"})

	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "petshop",
		Subsystem: "backup",
		Name:      "runs_total",
		Help:      "Tenant backup outcomes.",
	}, []string{"result"})

	BackupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "petshop",
		Subsystem: "backup",
		Name:      "duration_seconds",
		Help:      "Wall time of tenant backups.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
