/*
Package runner drives the travel flow for chat sessions.

It is the bridge between the flow engine and the transports (HTTP, MCP, the
CLI): a message is accepted synchronously, the run happens on a worker pool,
and progress is read back as an event stream.

# Turn lifecycle

  - Send sanitizes the message, marks the session processing and queues a run.
  - The run replays the graph; nodes consume the message where they are waiting for it.
  - When the flow pauses the session becomes waiting_input and the stream stays open.
  - When it finishes the final plan is emitted once, followed by a complete event.
  - A failure ends the stream with a terminal error event and the session becomes error.

# Usage

	svc := runner.New(registry, workerpool.New(4, 64), graphFactory,
		runner.WithArchive(archive),
		runner.WithRunTimeout(5*time.Minute),
	)

	reply, err := svc.Send(ctx, "", "Two weeks in Japan in April")
	seq, err := svc.Stream(ctx, reply.SessionID)
	for ev := range seq {
		fmt.Println(ev)
	}
*/
package runner
