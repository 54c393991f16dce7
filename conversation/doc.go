// Package conversation runs the onboarding dialogue between a business owner
// and a hosted model.
//
// A Session holds the transcript and sends it, together with the onboarding
// instruction and the mark_onboarding_complete tool, through a Completer
// (normally a unifiedllm.Client). When the model calls the tool, the payload
// is validated into an onboarding.Record. A rejected payload is returned to
// the model as an error tool result so it can ask the owner again.
//
// # States
//
// A session moves between these states:
//
//   - StateAwaitingModel: a completion request is in flight.
//   - StateAwaitingUser: the model asked a question and waits for input.
//   - StateCompleted: a valid record was accepted. Terminal.
//   - StateExited: the owner typed the exit sentinel or input ended. Terminal.
//
// Once a session is finished, Start and Submit return ErrSessionFinished.
//
// # Quick Start
//
//	session := conversation.NewSession(client, conversation.DefaultConfig())
//	out, err := session.Run(ctx, console.New(os.Stdin, os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if out.Completed() {
//	    data, _ := out.Record.JSON()
//	    fmt.Println(string(data))
//	}
package conversation
