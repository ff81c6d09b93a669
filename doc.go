/*
Package wayfarer assembles the travel planner: a workflow graph that turns a
conversation into a day-by-day travel guide, run on a bounded worker pool and
observed through a per-session event stream.

A message starts or resumes a run. Runs always execute the graph from its
start node; nodes whose output is already in the session's store skip their
work, so a run that stopped to ask the user something picks up where it left
off once the answer arrives.

	cfg, _ := config.Load("")
	app, err := wayfarer.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	reply, _ := app.Service.Send(ctx, "", "Five days in Lisbon in May")
	stream, _ := app.Service.Stream(ctx, reply.SessionID)
	for ev := range stream {
		fmt.Println(ev.Kind, ev.Content)
	}

The same App backs the HTTP API, the MCP tools and the interactive chat in
cmd/wayfarer.
*/
package wayfarer
