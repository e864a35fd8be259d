/*
Package domain contains the core models of the GMP command dispatcher.

It defines the hierarchical configuration tree carried by sequence commands,
the taxonomy of handler responses, and the Action that tracks a command in
flight until every handler involved has answered. This package is kept pure
and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - ConfigPath: A hierarchical address such as "X:S1:A.val1".
  - Configuration: An immutable set of path/value entries, sliced by prefix.
  - Command: A SequenceCommand, its Activity and its Configuration.
  - HandlerResponse: ACCEPTED, STARTED, COMPLETED, ERROR or NOANSWER.
  - Action: A Command in flight with its required-response counter.
  - ActionMessage: The slice of an Action addressed to one handler.
*/
package domain
