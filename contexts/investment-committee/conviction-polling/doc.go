// Package convictionpolling implements blind conviction polling inside the
// investment-committee context.
//
// The module owns poll lifecycle orchestration (create/vote/reveal), the
// concealment rules that keep ballots private until a threshold-gated reveal,
// and post-reveal divergence aggregation for IC discussion. Business rules
// live in the application/domain layers; infrastructure stays behind ports
// and adapters.
package convictionpolling
