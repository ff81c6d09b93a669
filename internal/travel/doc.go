// Package travel is the travel planner built on the flow engine: fourteen
// nodes that interview the traveller, research the destination, and write
// and revise a day-by-day guide.
//
// The flow is driven one user message at a time. A run stops whenever a node
// needs the user (ActionWait) and the next message replays the graph from the
// start; every node checks the Store first so completed work is not repeated.
package travel
