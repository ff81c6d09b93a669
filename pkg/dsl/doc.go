/*
Package dsl provides a fluent builder for assembling flow graphs in Go code.

Nodes are declared with Add (single) or Batch, and transitions with Then
(default action) or On (named action). Build reports every configuration
problem at once as a joined error of *domain.GraphConfigurationError values.

Example usage:

	b := dsl.New()

	b.Add("analyze", analyze).Then("decide")
	b.Add("decide", decide).
		On("clarify", "ask").
		On("proceed", "research")
	b.Add("ask", ask)
	b.Batch("research", research, flow.WithRetries(2, time.Second))

	graph, err := b.Build()
	if err != nil {
		return err
	}
	f, err := flow.New(graph)
*/
package dsl
