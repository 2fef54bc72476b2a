/*
 * @module service/ingestion/encoding
 * @description 文件编码转换，支持UTF-8(去BOM)、GBK与GB18030
 * @architecture 数据接入层
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 原始字节 -> 解码 -> UTF-8文本
 * @rules 不支持的编码在读取文件前报错
 * @dependencies golang.org/x/text
 * @refs service/ingestion/batch_processor.go
 */

package ingestion

import (
	"fmt"
	"io"
	"strings"

	"datacontract-service/service/models"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// 支持的源文件编码
const (
	EncodingUTF8    = "utf-8"
	EncodingGBK     = "gbk"
	EncodingGB18030 = "gb18030"
)

// decoderFor 返回把源编码转换为UTF-8的转换器，UTF-8输入会去掉BOM
func decoderFor(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
		return unicode.BOMOverride(transform.Nop), nil
	case EncodingGBK:
		return simplifiedchinese.GBK.NewDecoder(), nil
	case EncodingGB18030:
		return simplifiedchinese.GB18030.NewDecoder(), nil
	default:
		return nil, &models.ConfigurationError{Scope: "ingestion", Reason: fmt.Sprintf("不支持的文件编码: %q", encoding)}
	}
}

func decodeReader(r io.Reader, decoder transform.Transformer) io.Reader {
	return transform.NewReader(r, decoder)
}
