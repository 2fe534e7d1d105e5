/*
Package domain contains the core domain models for the Espalier form runtime.

It defines the fundamental entities of the branching form state machine:
Forms, Questions (a closed variant over input kinds), Groups (multi-question
screens), Transition strategies with conditional Routes, Answers, and the
durable Submission record. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Form: the declarative definition of an ordered question sequence plus
    grouping and branching rules.
  - Question: one unit of input, discriminated by Kind. Consumers switch on
    Kind exhaustively rather than asserting concrete types.
  - Group: a named set of questions collapsed into a single screen.
  - TransitionStrategy: the rule governing which question follows the current
    one, either a static target or an ordered list of conditional Routes.
  - Answer / Submission: the chronological answer log and its persisted form.
*/
package domain
