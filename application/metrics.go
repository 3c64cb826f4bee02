package application

import "postulaciones/domain"

// Metrics receives business events. The prometheus implementation lives in
// infrastructure.
type Metrics interface {
	CertificateIssued()
	CertificateFailed(kind domain.Kind)
	Verified(channel string, found bool)
	LedgerAppendFailed(channel string)
}

type NopMetrics struct{}

func (NopMetrics) CertificateIssued()            {}
func (NopMetrics) CertificateFailed(domain.Kind) {}
func (NopMetrics) Verified(string, bool)         {}
func (NopMetrics) LedgerAppendFailed(string)     {}
