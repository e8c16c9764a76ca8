// Command ptrackctl replays recorded instrumentation event logs through the
// page-fault cost partitioner and reports which functions should migrate
// to the accelerator architecture.
package main

import "github.com/ptrackio/ptrack/cmd/ptrackctl/cmd"

func main() {
	cmd.Execute()
}
