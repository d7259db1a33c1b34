package notifications

import (
	"context"
	"testing"
	"time"

	"order_sync/internal/cursor"
	"order_sync/internal/orders"
	"order_sync/internal/roster"
	"order_sync/internal/sheets"
	"order_sync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentRow(number, product string) []string {
	return orders.Row{
		OrderNumber: number,
		FirstName:   "Ada",
		LastName:    "Obi",
		Location:    "Lagos",
		Product:     product,
		Quantity:    "2",
		Price:       "2500.0",
		Phone:       "0803",
	}.Strings()
}

type notifyFixture struct {
	sheets  map[string]*testutil.FakeSheet
	sender  *testutil.FakeSender
	cursors cursor.Store
	n       *Notifier
}

func newNotifyFixture(t *testing.T, delay time.Duration) *notifyFixture {
	t.Helper()
	r, err := roster.Parse([]byte(`
agents:
  - {name: Amaka, sheet_id: a, whatsapp: "+2348011111111"}
  - {name: Bayo, sheet_id: b, whatsapp: "+2348022222222"}
  - {name: Silent, sheet_id: c}
`), "Sheet1")
	require.NoError(t, err)

	header := append([]string(nil), orders.Headers...)
	f := &notifyFixture{
		sheets: map[string]*testutil.FakeSheet{
			"Amaka":  testutil.NewFakeSheet("a", header, agentRow("1001", "Fan"), agentRow("1003", "Iron")),
			"Bayo":   testutil.NewFakeSheet("b", header, agentRow("1002", "Kettle")),
			"Silent": testutil.NewFakeSheet("c", header, agentRow("1004", "Pot")),
		},
		sender:  &testutil.FakeSender{},
		cursors: cursor.NewFileStore(t.TempDir()),
	}
	open := func(a roster.Agent) sheets.Sheet { return f.sheets[a.Name] }
	f.n = NewNotifier(r, open, f.cursors, f.sender, delay, "NGN")
	return f
}

func (f *notifyFixture) watermark(t *testing.T, agent string) int64 {
	t.Helper()
	w, err := f.cursors.Get(context.Background(), cursor.SentKey(agent), cursor.DefaultRowWatermark)
	require.NoError(t, err)
	return w
}

func TestRunSendsEveryNewRowOnce(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t, 0)

	sent, err := f.n.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	require.Len(t, f.sender.Sent, 3)
	assert.Equal(t, "+2348011111111", f.sender.Sent[0].To)
	assert.Contains(t, f.sender.Sent[0].Body, "Order #1001")
	assert.Contains(t, f.sender.Sent[1].Body, "Order #1003")
	assert.Equal(t, "+2348022222222", f.sender.Sent[2].To)
	assert.Equal(t, int64(3), f.watermark(t, "Amaka"))
	assert.Equal(t, int64(2), f.watermark(t, "Bayo"))
	assert.Equal(t, int64(1), f.watermark(t, "Silent"))

	sent, err = f.n.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, f.sender.Sent, 3)
}

func TestRunOnlySendsAppendedRows(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t, 0)

	_, err := f.n.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, f.sheets["Bayo"].Append(ctx, [][]interface{}{orders.RowFromValues(nil).Values()}))
	row := agentRow("1005", "Mixer")
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	require.NoError(t, f.sheets["Bayo"].Append(ctx, [][]interface{}{values}))

	sent, err := f.n.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "blank row is skipped")
	assert.Contains(t, f.sender.Sent[3].Body, "Order #1005")
	assert.Equal(t, int64(4), f.watermark(t, "Bayo"))
}

func TestRunAdvancesPastFailedSend(t *testing.T) {
	ctx := context.Background()
	f := newNotifyFixture(t, 0)
	f.sender.FailOn = map[int]bool{1: true}

	sent, err := f.n.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int64(3), f.watermark(t, "Amaka"))

	sent, err = f.n.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "failed row is not resent")
}

func TestRunIsolatesAgentReadFailures(t *testing.T) {
	f := newNotifyFixture(t, 0)
	f.sheets["Amaka"].FailReads = true

	sent, err := f.n.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Equal(t, 1, sent)
	assert.Equal(t, int64(1), f.watermark(t, "Amaka"))
	assert.Equal(t, int64(2), f.watermark(t, "Bayo"))
}

func TestRunPacesSends(t *testing.T) {
	f := newNotifyFixture(t, 20*time.Millisecond)

	start := time.Now()
	sent, err := f.n.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

type slowSheet struct {
	sheets.Sheet
	latency time.Duration
}

func (s slowSheet) ReadAll(ctx context.Context) ([][]interface{}, error) {
	time.Sleep(s.latency)
	return s.Sheet.ReadAll(ctx)
}

func TestRunKeepsFullDelayBetweenSendsAfterIdle(t *testing.T) {
	const delay = 60 * time.Millisecond
	f := newNotifyFixture(t, delay)
	r, err := roster.Parse([]byte(`
agents:
  - {name: Amaka, sheet_id: a, whatsapp: "+2348011111111"}
  - {name: Bayo, sheet_id: b, whatsapp: "+2348022222222"}
`), "Sheet1")
	require.NoError(t, err)
	open := func(a roster.Agent) sheets.Sheet {
		if a.Name == "Bayo" {
			return slowSheet{Sheet: f.sheets[a.Name], latency: 2 * delay}
		}
		return f.sheets[a.Name]
	}
	n := NewNotifier(r, open, f.cursors, f.sender, delay, "NGN")

	time.Sleep(2 * delay)
	sent, err := n.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, sent)

	for i := 1; i < len(f.sender.Sent); i++ {
		gap := f.sender.Sent[i].At.Sub(f.sender.Sent[i-1].At)
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond, "gap before send %d", i+1)
	}

	require.NoError(t, f.sheets["Amaka"].Append(context.Background(), [][]interface{}{toValues(agentRow("1005", "Mixer")), toValues(agentRow("1007", "Blender"))}))
	time.Sleep(2 * delay)
	f.sender.Sent = nil
	sent, err = n.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	assert.GreaterOrEqual(t, f.sender.Sent[1].At.Sub(f.sender.Sent[0].At), delay-5*time.Millisecond)
}

func toValues(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func TestRunStopsWhenCancelledDuringPacing(t *testing.T) {
	f := newNotifyFixture(t, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	sent, err := f.n.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, int64(2), f.watermark(t, "Amaka"))
	assert.Equal(t, int64(1), f.watermark(t, "Bayo"))
}

func TestFormatMessage(t *testing.T) {
	header := append([]string(nil), orders.Headers...)
	row := orders.Row{
		OrderNumber: "#1001",
		FirstName:   "Ada",
		LastName:    "Obi",
		Location:    "Ikeja",
		Product:     "Air Fryer",
		Quantity:    "3",
		Price:       "2500.0",
		Phone:       "0803",
		Address:     "5 Broad St",
	}.Values()

	want := "New Order Assigned 🛍️\n" +
		"Order ##1001\n" +
		"Customer: Ada Obi\n" +
		"Phone: 0803\n" +
		"Address: 5 Broad St\n" +
		"Location: Ikeja\n" +
		"Items:\n" +
		" - Air Fryer x3 @ NGN 2500.0"
	assert.Equal(t, want, FormatMessage(header, row, "NGN"))
}

func TestFormatMessageOmitsBlankAddressAndUsesHeaderNames(t *testing.T) {
	header := []string{"PRODUCT", "ORDER NUMBER", "PRICE"}
	msg := FormatMessage(header, []interface{}{"Fan", 12.0}, "USD")

	assert.Contains(t, msg, "Order #12\n")
	assert.NotContains(t, msg, "Address:")
	assert.Contains(t, msg, " - Fan x @ USD ")

	msg = FormatMessage([]string{"PRODUCT"}, []interface{}{"Fan"}, "USD")
	assert.Contains(t, msg, "Order #N/A")
}
