package summary

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category は1個単位の分類です。{通常, ネタ変} × {さび有, さび抜き} × {折なし, 折} の8通り。
type Category int

const (
	NormalWasabi Category = iota
	NormalWasabiOri
	ChangedWasabi
	ChangedWasabiOri
	NormalNowasabi
	NormalNowasabiOri
	ChangedNowasabi
	ChangedNowasabiOri

	numCategories
)

// AllCategories は出力順 (JSON のキー順、CSV の列順) です。
var AllCategories = [numCategories]Category{
	NormalWasabi, NormalWasabiOri,
	ChangedWasabi, ChangedWasabiOri,
	NormalNowasabi, NormalNowasabiOri,
	ChangedNowasabi, ChangedNowasabiOri,
}

var categoryKeys = [numCategories]string{
	NormalWasabi:       "normal_wasabi",
	NormalWasabiOri:    "normal_wasabi_ori",
	ChangedWasabi:      "changed_wasabi",
	ChangedWasabiOri:   "changed_wasabi_ori",
	NormalNowasabi:     "normal_nowasabi",
	NormalNowasabiOri:  "normal_nowasabi_ori",
	ChangedNowasabi:    "changed_nowasabi",
	ChangedNowasabiOri: "changed_nowasabi_ori",
}

var categoryLabels = [numCategories]string{
	NormalWasabi:       "通常",
	NormalWasabiOri:    "通常・折",
	ChangedWasabi:      "ネタ変",
	ChangedWasabiOri:   "ネタ変・折",
	NormalNowasabi:     "さび抜き",
	NormalNowasabiOri:  "さび抜き・折",
	ChangedNowasabi:    "ネタ変・さび抜き",
	ChangedNowasabiOri: "ネタ変・さび抜き・折",
}

// decisionTable[ネタ変][さび抜き][折]
var decisionTable = [2][2][2]Category{
	{ // 通常
		{NormalWasabi, NormalWasabiOri},
		{NormalNowasabi, NormalNowasabiOri},
	},
	{ // ネタ変
		{ChangedWasabi, ChangedWasabiOri},
		{ChangedNowasabi, ChangedNowasabiOri},
	},
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Classify は3つの属性から分類を1つだけ決定します。
func Classify(changed, nowasabi, ori bool) Category {
	return decisionTable[b2i(changed)][b2i(nowasabi)][b2i(ori)]
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryKeys[c]
}

// Label は帳票用の日本語名です。
func (c Category) Label() string {
	if c < 0 || c >= numCategories {
		return c.String()
	}
	return categoryLabels[c]
}

// Counts は商品1つ分の8区分の個数です。
type Counts [numCategories]int

func (c *Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// MarshalJSON は8区分を固定順のキーで出力します。
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range AllCategories {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:%d", cat.String(), c[cat])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Counts) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*c = Counts{}
	for _, cat := range AllCategories {
		c[cat] = m[cat.String()]
	}
	return nil
}
