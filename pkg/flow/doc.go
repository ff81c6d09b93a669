/*
Package flow is the workflow graph engine.

A Graph holds named vertices connected by action-labelled edges. Each vertex
wraps either a Node (Prep, Exec, Post) or a BatchNode, which fans the prepared
items out to one Exec call per item and reduces the ordered results in Post.
Exec is retried according to the vertex policy and may fall back to a degraded
result when the node implements Fallback.

A Flow runs a sealed Graph against a Store, the per-session state document.
Runs are synchronous. There is no cycle limit; loops terminate because the
vertices in them consult counters kept in the Store.

Pause and resume are restart based: a vertex ends the run by returning an
action with no edge after recording in the Store that more input is needed,
and the next run starts from the top again.
*/
package flow
