package commands

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/etm-api/app/etmtest"
	"github.com/lysyi3m/etm-api/app/resource"
)

const (
	stateInProgress = "com.ibm.rqm.executionframework.common.requeststate.inprogress"
	stateNew        = "com.ibm.rqm.executionframework.common.requeststate.new"

	resultPassed = "com.ibm.rqm.execution.common.state.passed"
	resultFailed = "com.ibm.rqm.execution.common.state.failed"
)

func taskXML(state string, progress int, created, resultURL string) string {
	var result string
	if resultURL != "" {
		result = fmt.Sprintf(`<ns15:resultURL href="%s"/>`, resultURL)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ns2:tasks xmlns:ns2="http://jazz.net/xmlns/alm/qm/v0.1/" xmlns:ns6="http://jazz.net/xmlns/alm/v0.1/" xmlns:ns15="http://jazz.net/xmlns/alm/qm/qmadapter/task/v0.1">
  <ns6:state>%s</ns6:state>
  <ns15:progress>%d</ns15:progress>
  <ns2:creationDate>%s</ns2:creationDate>
  %s
</ns2:tasks>`, state, progress, created, result)
}

func resultXML(state string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ns2:executionresult xmlns:ns2="http://jazz.net/xmlns/alm/qm/v0.1/" xmlns:ns6="http://jazz.net/xmlns/alm/v0.1/">
  <ns6:state>%s</ns6:state>
</ns2:executionresult>`, state)
}

// seedTasks stores four tasks:
//  1. in progress at 50%, created in 2023
//  2. new at 0%, created in 2025
//  3. in progress at 100% with a passed result
//  4. in progress at 100% with a failed result
func seedTasks(srv *etmtest.Server) {
	server := srv.URL()
	passed := resource.URI(server, "JKE", "executionresult", "1")
	failed := resource.URI(server, "JKE", "executionresult", "2")

	srv.AddResource("JKE", "executionresult", "1", resultXML(resultPassed))
	srv.AddResource("JKE", "executionresult", "2", resultXML(resultFailed))

	srv.AddResource("JKE", "tasks", taskURN+"1", taskXML(stateInProgress, 50, "2023-06-01T10:00:00.000Z", ""))
	srv.AddResource("JKE", "tasks", taskURN+"2", taskXML(stateNew, 0, "2025-06-01T10:00:00.000Z", ""))
	srv.AddResource("JKE", "tasks", taskURN+"3", taskXML(stateInProgress, 100, "2024-06-01T10:00:00.000Z", passed))
	srv.AddResource("JKE", "tasks", taskURN+"4", taskXML(stateInProgress, 100, "2024-06-01T10:00:00.000Z", failed))
}

func TestCompleteExecutionTasksCommand(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "execution states",
			opts: Options{ExecutionStates: []string{stateNew}},
			want: []string{"2"},
		},
		{
			name: "creation date",
			opts: Options{CreationDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			want: []string{"1"},
		},
		{
			name: "progress",
			opts: Options{ExecutionProgress: 100},
			want: []string{"3", "4"},
		},
		{
			name: "result states",
			opts: Options{ResultStates: []string{resultPassed}},
			want: []string{"3"},
		},
		{
			name: "resource IDs",
			opts: Options{ResourceIDs: []string{"4", taskURN + "1"}},
			want: []string{"4", "1"},
		},
		{
			name: "combined filters",
			opts: Options{ExecutionStates: []string{stateInProgress}, ExecutionProgress: 100, ResultStates: []string{resultFailed}},
			want: []string{"4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := etmtest.New(etmtest.Options{})
			defer srv.Close()
			seedTasks(srv)

			opts := tt.opts
			if opts.ExecutionProgress == 0 {
				opts.ExecutionProgress = -1
			}

			env := newTestEnv(t, srv, nil, opts)
			cmd := NewCompleteExecutionTasksCommand("completeExecutionTasks", env.Env)
			run(t, cmd)

			want := make([]string, 0, len(tt.want))
			for _, id := range tt.want {
				want = append(want, resource.URI(env.serverURL(), "JKE", "tasks", taskURN+id))
			}
			if !reflect.DeepEqual(cmd.Completed, want) {
				t.Errorf("Expected %v, got %v", want, cmd.Completed)
			}

			for _, id := range []string{"1", "2", "3", "4"} {
				stored, _ := srv.Resource("JKE", "tasks", taskURN+id)
				want := slices.Contains(tt.want, id)
				if complete := strings.Contains(stored.XML, TaskStateComplete); complete != want {
					t.Errorf("Expected task %s complete %v, got XML:\n%s", id, want, stored.XML)
				}
			}
		})
	}
}

func TestCompleteExecutionTasksCommand_TestMode(t *testing.T) {
	srv := etmtest.New(etmtest.Options{})
	defer srv.Close()
	seedTasks(srv)

	env := newTestEnv(t, srv, nil, Options{Test: true, ExecutionProgress: 100})
	cmd := NewCompleteExecutionTasksCommand("completeExecutionTasks", env.Env)
	run(t, cmd)

	if len(cmd.Completed) != 2 {
		t.Errorf("Expected 2 test completed tasks, got %v", cmd.Completed)
	}
	if got := len(srv.RequestsTo("PUT", "")); got != 0 {
		t.Errorf("Expected no PUT requests in test mode, got %d", got)
	}
	if !strings.Contains(env.console.String(), "    Test completed 2 execution tasks.") {
		t.Errorf("Expected test summary, got:\n%s", env.console.String())
	}
}

func TestCompleteExecutionTasksCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name:    "no filters",
			opts:    Options{ExecutionProgress: -1},
			wantErr: "requires resource web IDs",
		},
		{
			name:    "resource IDs with several project areas",
			opts:    Options{ExecutionProgress: -1, ResourceIDs: []string{"1"}, ProjectAreas: []string{"JKE", "MTM"}},
			wantErr: "only work on one project area",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCompleteExecutionTasksCommand("completeExecutionTasks", NewEnv(nil, nil, nil, nil, tt.opts))

			err := cmd.Execute(t.Context())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTaskID(t *testing.T) {
	tests := map[string]string{
		"urn:com.ibm.rqm:tasks:12": "12",
		"12":                       "12",
	}
	for in, want := range tests {
		if got := taskID(in); got != want {
			t.Errorf("Expected %s for %s, got %s", want, in, got)
		}
	}
}
