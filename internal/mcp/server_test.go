package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-offspring-analyzer/internal/batch"
	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/service"
)

// connect starts the server on in-memory transports and returns a client
// session bound to it.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()

	analyzer := batch.NewAnalyzer(service.NewInheritanceEngine(nil), nil)
	srv, err := NewServer(domain.MCPConfig{ServerName: "abo-test", ServerVersion: "0.0.1"}, analyzer)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	connectCtx, connectCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer connectCancel()

	session, err := client.Connect(connectCtx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
		cancel()
		select {
		case <-serveErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop after cancel")
		}
	})
	return session
}

func decodeStructured[T any](t *testing.T, value any) T {
	t.Helper()
	data, err := json.Marshal(value)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestNewServer_RequiresAnalyzer(t *testing.T) {
	_, err := NewServer(domain.MCPConfig{}, nil)
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, toolNames, names)
}

func TestCrossPhenotypesTool(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, toolCrossPhenotypes, map[string]any{
		"father":    "A",
		"mother":    "o",
		"father_rh": "-",
	})
	require.False(t, res.IsError)

	out := decodeStructured[CrossOutput](t, res.StructuredContent)
	assert.Equal(t, "A", out.Result.Father)
	assert.Equal(t, "O", out.Result.Mother)
	assert.Equal(t, map[string]float64{"A": 75, "O": 25}, out.Result.Percentages)
	require.NotNil(t, out.Result.FatherRh)
	assert.Equal(t, "-", *out.Result.FatherRh)
	assert.Nil(t, out.Result.MotherRh)
	assert.NotEmpty(t, out.Result.ID)
}

func TestCrossPhenotypesTool_NumericZero(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, toolCrossPhenotypes, map[string]any{"father": 0, "mother": 0})
	require.False(t, res.IsError)

	out := decodeStructured[CrossOutput](t, res.StructuredContent)
	assert.Equal(t, map[string]float64{"O": 100}, out.Result.Percentages)
}

func TestCrossPhenotypesTool_InvalidPhenotype(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, toolCrossPhenotypes, map[string]any{"father": "A", "mother": "Q"})
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "mother")
	assert.Contains(t, text.Text, "invalid blood group")
}

func TestAnalyzeRecordsTool(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, toolAnalyzeRecords, map[string]any{
		"records": []map[string]any{
			{"father": "AB", "mother": "AB"},
			{"father": "Z", "mother": "O"},
			{"father": "B", "mother": "O", "mother_rh": "+"},
		},
	})
	require.False(t, res.IsError)

	out := decodeStructured[AnalyzeOutput](t, res.StructuredContent)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, 1, out.Failed)
	require.Len(t, out.Results, 3)
	assert.Equal(t, map[string]float64{"A": 25, "B": 25, "AB": 50}, out.Results[0].Percentages)
	assert.Equal(t, 2, out.Results[1].RecordIndex)
	assert.NotEmpty(t, out.Results[1].Error)
	assert.Empty(t, out.Results[1].Percentages)
	assert.Equal(t, map[string]float64{"B": 75, "O": 25}, out.Results[2].Percentages)
}

func TestListPhenotypesTool(t *testing.T) {
	session := connect(t)

	res := callTool(t, session, toolListPhenotypes, map[string]any{})
	require.False(t, res.IsError)

	out := decodeStructured[ListOutput](t, res.StructuredContent)
	assert.Equal(t, []string{"A", "B", "AB", "O"}, out.Phenotypes)
	assert.Equal(t, []string{"B/B", "B/O"}, out.Genotypes["B"])
	assert.Equal(t, []string{"A/B"}, out.Genotypes["AB"])
}
