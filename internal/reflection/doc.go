// Package reflection implements the self-correction controller that
// turns a user sizing query into a single validated recommendation.
//
// A run has two sequential bounded phases. The relevance phase
// retrieves context for the query and, when reflection is enabled,
// scores it and rewrites the query until the context clears the
// relevance threshold or the iteration budget runs out. The generation
// phase produces a candidate configuration from the accepted context,
// validates it against the hardware feasibility model, and regenerates
// until the explanation clears the groundedness threshold or its own
// budget runs out. An infeasible or malformed candidate ends the run
// immediately with an all-null refusal, since regeneration cannot
// change physical memory limits.
//
// The controller holds no mutable state between runs and depends on
// its collaborators only through the capability interfaces in this
// package, so a controller instance may serve concurrent queries.
package reflection
