// Package portfolio loads the trade envelopes a run values: each trade
// already carries its scripted payoff plus the named terms that
// payoff references. Translating a product taxonomy (swap, cap, barrier
// option, ...) into a script is an "instrument construction" collaborator
// that is out of scope here; this package only plumbs an already-written
// script and its term bindings into a valuation.Trade, the same way
// oreconfig plumbs the run's XML configuration.
package portfolio

import (
	"encoding/xml"
	"os"
	"strconv"
	"time"

	"github.com/wyfcoding/ore/internal/oreerr"
	"github.com/wyfcoding/ore/internal/randomvar"
	"github.com/wyfcoding/ore/internal/scriptast"
	"github.com/wyfcoding/ore/internal/valuation"
	"github.com/wyfcoding/ore/internal/valuetype"
)

const dateLayout = "2006-01-02"

type fileBinding struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type fileBindings struct {
	Event      []fileBinding `xml:"Event"`
	Currency   []fileBinding `xml:"Currency"`
	Number     []fileBinding `xml:"Number"`
	Index      []fileBinding `xml:"Index"`
	DayCounter []fileBinding `xml:"DayCounter"`
}

type fileTrade struct {
	ID           string       `xml:"id,attr"`
	NettingSetID string       `xml:"nettingSetId,attr"`
	Currency     string       `xml:"currency,attr"`
	ResultVar    string       `xml:"resultVar,attr"`
	StoreFlows   bool         `xml:"storeFlows,attr"`
	Script       string       `xml:"Script"`
	Bindings     fileBindings `xml:"Bindings"`
}

type file struct {
	XMLName xml.Name    `xml:"Portfolio"`
	Trades  []fileTrade `xml:"Trade"`
}

// Load parses portfolioFile (setup.portfolioFile) into Trades, in
// file order — the order the driver indexes the cube by.
func Load(path string) ([]*valuation.Trade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oreerr.NewIO(err, "portfolio: reading %q", path)
	}
	var f file
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, oreerr.NewConfig(err, "portfolio: parsing %q", path)
	}

	trades := make([]*valuation.Trade, 0, len(f.Trades))
	for _, ft := range f.Trades {
		trade, err := ft.toTrade()
		if err != nil {
			return nil, oreerr.NewConfig(err, "portfolio: trade %q in %q", ft.ID, path)
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

func (ft fileTrade) toTrade() (*valuation.Trade, error) {
	node, err := scriptast.Parse(ft.Script)
	if err != nil {
		return nil, err
	}

	ctx := valuetype.New()
	for _, b := range ft.Bindings.Event {
		t, err := time.Parse(dateLayout, b.Value)
		if err != nil {
			return nil, err
		}
		ctx.BindExternal(b.Name, valuetype.FromEvent(t))
	}
	for _, b := range ft.Bindings.Currency {
		ctx.BindExternal(b.Name, valuetype.FromCurrency(b.Value))
	}
	for _, b := range ft.Bindings.Number {
		v, err := strconv.ParseFloat(b.Value, 64)
		if err != nil {
			return nil, err
		}
		ctx.BindExternal(b.Name, valuetype.FromNumber(randomvar.NewDeterministic(0, v)))
	}
	for _, b := range ft.Bindings.Index {
		ctx.BindExternal(b.Name, valuetype.FromIndex(b.Value))
	}
	for _, b := range ft.Bindings.DayCounter {
		ctx.BindExternal(b.Name, valuetype.FromDayCounter(b.Value))
	}

	return &valuation.Trade{
		ID:            ft.ID,
		NettingSetID:  ft.NettingSetID,
		Currency:      ft.Currency,
		Script:        node,
		Ctx:           ctx,
		ResultVarName: ft.ResultVar,
		StoreFlows:    ft.StoreFlows,
	}, nil
}
