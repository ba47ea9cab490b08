package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-vcard"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSVRows は CSV をヘッダー名をキーにした行の一覧に変換します。
// BOM 付きの UTF-8 / UTF-16 と、UTF-8 として不正な場合は Windows-1252 として読み込みます。
// 列数が揃っていない行も受け付け、足りない列はキー自体を持ちません。
func ReadCSVRows(r io.Reader) ([]map[string]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read csv: %w", err)
	}
	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("could not decode csv: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []map[string]string{}, nil
		}
		return nil, fmt.Errorf("could not parse csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []map[string]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse csv: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, value := range record {
			if i >= len(header) {
				break
			}
			row[header[i]] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// decodeText は BOM を優先して UTF-8 に変換します。
func decodeText(raw []byte) ([]byte, error) {
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(raw) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), raw)
	return out, err
}

// sniffDelimiter はヘッダー行にカンマがなくセミコロンがあればセミコロン区切りとみなします。
// ドイツ語版 Excel の CSV はセミコロン区切りです。
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	if !bytes.ContainsRune(line, ',') && bytes.ContainsRune(line, ';') {
		return ';'
	}
	return ','
}

var (
	vcardBasicFull      = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	vcardBasicRecurring = regexp.MustCompile(`^--(\d{2})(\d{2})$`)
	vcardDateTime       = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T`)
)

// ReadVCardRows は vCard の連絡先を取り込み行の一覧に変換します。
// 誕生日がない連絡先は Birthday が空の行になり、ProcessRows でスキップされます。
func ReadVCardRows(r io.Reader) ([]map[string]string, error) {
	decoder := vcard.NewDecoder(r)
	rows := []map[string]string{}
	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse vcard: %w", err)
		}

		first, last := vcardName(card)
		rows = append(rows, map[string]string{
			ColumnFirstName: first,
			ColumnLastName:  last,
			ColumnBirthday:  NormalizeVCardDate(card.Value(vcard.FieldBirthday)),
		})
	}
	return rows, nil
}

// vcardName は N を優先し、なければ FN の最後の単語を姓として名と姓を返します。
func vcardName(card vcard.Card) (first, last string) {
	if n := card.Name(); n != nil && (n.GivenName != "" || n.FamilyName != "") {
		return n.GivenName, n.FamilyName
	}
	fn := strings.TrimSpace(card.PreferredValue(vcard.FieldFormattedName))
	if i := strings.LastIndex(fn, " "); i >= 0 {
		return strings.TrimSpace(fn[:i]), fn[i+1:]
	}
	return fn, ""
}

// NormalizeVCardDate は vCard の BDAY を "YYYY-MM-DD" または "--MM-DD" に揃えます。
// 解釈できない値はそのまま返します。
func NormalizeVCardDate(value string) string {
	value = strings.TrimSpace(value)
	if m := vcardBasicFull.FindStringSubmatch(value); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := vcardBasicRecurring.FindStringSubmatch(value); m != nil {
		return "--" + m[1] + "-" + m[2]
	}
	if m := vcardDateTime.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}
