// Package loanflow provides a resumable loan application engine: a fixed
// step sequence that collects applicant answers, queries capability providers
// (applicant profile, geo policy, risk), decides the application and renders
// the agreement. Sessions are durable and suspend whenever an answer is
// missing; stuck sessions escalate to a human operator whose resolution feeds
// straight back into the flow.
//
// End-users interact through the Service façade exposed by this package:
//
//	srv := loanflow.New()
//	view, _ := srv.Orchestrator().Start(ctx, "I need 5,00,000 for home renovation in Mumbai")
//	view, _ = srv.Orchestrator().Advance(ctx, view.ID, "ABCDE1234F")
//
// For more details see the README and individual sub-packages.
package loanflow
