package commands

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/lysyi3m/etm-api/app/etmtest"
	"github.com/lysyi3m/etm-api/app/resource"
)

func remoteScriptXML(webID int, scriptType string, managed bool, adapterID string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ns2:remotescript xmlns:ns2="http://jazz.net/xmlns/alm/qm/v0.1/" xmlns:ns4="http://purl.org/dc/elements/1.1/">
  <ns2:webId>%d</ns2:webId>
  <ns4:title>Remote script %d</ns4:title>
  <ns2:type>%s</ns2:type>
  <ns2:manageadapter>%t</ns2:manageadapter>
  <ns2:adapterid>%s</ns2:adapterid>
</ns2:remotescript>`, webID, webID, scriptType, managed, adapterID)
}

func seedRemoteScripts(srv *etmtest.Server) {
	srv.AddResource("JKE", "remotescript", "1", remoteScriptXML(1, "com.ibm.rqm.adapter.commandline", true, ""))
	srv.AddResource("JKE", "remotescript", "2", remoteScriptXML(2, "RQM-KEY-CMD-APTR-TYPE-NAME", true, ""))
	srv.AddResource("JKE", "remotescript", "3", remoteScriptXML(3, "com.ibm.rqm.adapter.commandline", true, "7"))
	srv.AddResource("JKE", "remotescript", "4", remoteScriptXML(4, "com.ibm.rqm.adapter.commandline", false, ""))
	srv.AddResource("JKE", "remotescript", "5", remoteScriptXML(5, "com.ibm.rqm.adapter.selenium", true, ""))
}

func TestAddMissingAdapterIDCommand(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		test bool
		want []string
	}{
		{name: "all scripts", want: []string{"1", "2"}},
		{name: "web IDs", ids: []string{"2", "3"}, want: []string{"2"}},
		{name: "test mode", test: true, want: []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := etmtest.New(etmtest.Options{})
			defer srv.Close()
			seedRemoteScripts(srv)

			env := newTestEnv(t, srv, nil, Options{
				RemoteScriptTypes: []string{"RQM-KEY-CMD-APTR-TYPE-NAME"},
				AdapterID:         "42",
				ResourceIDs:       tt.ids,
				Test:              tt.test,
			})
			cmd := NewAddMissingAdapterIDCommand("addMissingAdapterId", env.Env)
			run(t, cmd)

			want := make([]string, 0, len(tt.want))
			for _, id := range tt.want {
				want = append(want, resource.URI(env.serverURL(), "JKE", "remotescript", id))
			}
			if !reflect.DeepEqual(cmd.Updated, want) {
				t.Errorf("Expected %v, got %v", want, cmd.Updated)
			}

			for _, id := range tt.want {
				stored, _ := srv.Resource("JKE", "remotescript", id)
				updated := strings.Contains(stored.XML, "<ns2:adapterid>42</ns2:adapterid>")
				if updated == tt.test {
					t.Errorf("Expected remote script %s updated %v, got XML:\n%s", id, !tt.test, stored.XML)
				}
			}

			if stored, _ := srv.Resource("JKE", "remotescript", "3"); !strings.Contains(stored.XML, "<ns2:adapterid>7</ns2:adapterid>") {
				t.Errorf("Expected existing adapter ID kept, got XML:\n%s", stored.XML)
			}
		})
	}
}

func TestAddMissingAdapterIDCommand_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"no script types", Options{AdapterID: "42"}, "requires one or more remote script types"},
		{"no adapter ID", Options{RemoteScriptTypes: []string{"RQM-KEY-CMD-APTR-TYPE-NAME"}}, "requires an adapter ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewAddMissingAdapterIDCommand("addMissingAdapterId", NewEnv(nil, nil, nil, nil, tt.opts))

			err := cmd.Execute(t.Context())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
