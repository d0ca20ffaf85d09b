package bitget

import "encoding/json"

// envelope is Bitget's standard REST response wrapper: {"code": "00000",
// "msg": "success", "data": {...}}. code "00000" means success regardless
// of HTTP status; a non-"00000" code with a 2xx HTTP status still signals
// an application-level error.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

const successCode = "00000"

type tickerData struct {
	Symbol    string `json:"symbol"`
	Close     string `json:"close"`
	BidPr     string `json:"bidPr"`
	AskPr     string `json:"askPr"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Open      string `json:"open"`
	BaseVol   string `json:"baseVolume"`
	QuoteVol  string `json:"quoteVolume"`
	Ts        string `json:"ts"`
}

// candleRow is Bitget's heterogeneous kline array:
// [ts, open, high, low, close, baseVolume, quoteVolume]
type candleRow []string

type depthData struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
	Ts   string     `json:"ts"`
}

type symbolInfo struct {
	Symbol     string `json:"symbol"`
	BaseCoin   string `json:"baseCoin"`
	QuoteCoin  string `json:"quoteCoin"`
	Status     string `json:"status"`
}

type orderData struct {
	OrderID     string `json:"orderId"`
	ClientOID   string `json:"clientOid"`
	Symbol      string `json:"symbol"`
	Price       string `json:"price"`
	Size        string `json:"size"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Status      string `json:"status"`
	FilledQty   string `json:"filledQty"`
	FillPrice   string `json:"priceAvg"`
	CTime       string `json:"cTime"`
	UTime       string `json:"uTime"`
}

type accountAssetData struct {
	Coin      string `json:"coin"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
}

type serverTimeData struct {
	ServerTime string `json:"serverTime"`
}
