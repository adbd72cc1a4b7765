// Package policy implements the retrieval policies and the factory that builds them.
//
// Every policy satisfies the same four-step contract: Retrieve ranked evidence,
// Generate an answer from it, Justify the answer and Measure the request.
// Single-source policies (text, facts, graph) query one backend each. The
// hybrid policies fan out to all three concurrently and fuse the results with
// per-source min-max normalisation and renormalised fusion weights.
//
// Policies are cheap values built per request from a resolved configuration;
// they hold no state between requests.
package policy
