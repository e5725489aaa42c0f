// Package terminal implements the interactive command-line session of the
// grocery assistant.
//
// The session prompts with "User: ", hands each line to the agent together
// with the conversation so far, prints the reply as "Assistant: <text>" and
// reads it aloud before prompting again. Typing the exit keyword ("exit" by
// default, in any letter case) or closing the input ends the session.
//
// # Failed turns
//
// When a turn fails, for example because the provider is unreachable or the
// iteration limit was hit, the error is printed as "Error: <err>" and nothing is
// added to the history. The next input starts from the same conversation state.
//
// # Usage
//
//	term := terminal.New(a, speaker, os.Stdin, os.Stdout, terminal.Options{})
//	err := term.Run(ctx)
//
// # Verbosity Levels
//
// The terminal follows the agent's tool verbosity:
//
//   - None: No tool execution information is displayed
//   - Info: Tool names and tool failures are displayed
//   - All: Tool names, arguments, and results are displayed
package terminal
