/*
Package ports defines the driven ports (interfaces) for the Espalier runtime.

These interfaces decouple the navigation core from external collaborators,
allowing the runtime to work with various form sources, rule evaluators,
persistence backends, content generators, and analytics pipelines.

# Key Interfaces

  - FormRepository: resolves a form slug to its immutable definition.
  - RouteEvaluator: evaluates conditional transition routes against answers.
  - SubmissionStore: persists submission records (memory, Redis, ...).
  - SubmissionSync: the lazy-create / idempotent-update / complete contract
    the navigation controller drives after each advance or retreat.
  - ContentGenerator: produces text for informational screens.
  - AnalyticsSink: receives discrete, fire-and-forget lifecycle events.
  - DistributedLocker: coordinates session access across replicas.
*/
package ports
