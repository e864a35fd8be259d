/*
Package gmp dispatches observatory sequence commands to instrument handlers.

A Command carries a hierarchical Configuration. The Dispatcher splits it
across the handlers registered for its paths, sends each one its slice and
folds the replies, synchronous or asynchronous, into one response for the
caller.

# Responses

Submit returns as soon as every handler answered the first time:

  - COMPLETED, ACCEPTED or ERROR are final; no callback follows.
  - NOANSWER means some part of the configuration has no handler. Nothing
    was sent in that case unless the registry changed during the dispatch.
  - STARTED means at least one handler keeps working. The CompletionListener
    passed to Submit receives the final response once every handler
    reported through UpdateOcs.

# Usage

	registry := memory.NewRegistry(
		domain.MustParseConfigPath("X:S1"),
		domain.MustParseConfigPath("X:S2"),
	)
	d, err := gmp.New(
		gmp.WithSender(sender),
		gmp.WithHandlers(registry),
	)
	if err != nil {
		log.Fatal(err)
	}

	config, _ := domain.NewConfiguration(map[string]string{
		"X:S1:A.val1": "xa1",
		"X:S2:C.val1": "xc1",
	})
	cmd := domain.NewCommand(domain.SequenceApply, domain.ActivityStart, config)

	r, err := d.SubmitAndWait(ctx, cmd, 10*time.Second)

Asynchronous replies reach the Dispatcher through UpdateOcs, usually from a
transport adapter such as the Redis UpdateConsumer.
*/
package gmp
