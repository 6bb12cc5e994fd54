package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// authToken — токен вида "deadline:account:signature", живёт 10 минут.
// Подпись — HMAC-SHA256(apiKey, deadline|account).
func (c *Client) authToken() string {
	deadline := time.Now().Add(10 * time.Minute).Unix()
	payload := strconv.FormatInt(deadline, 10) + "|" + strconv.Itoa(c.accountIndex)

	mac := hmac.New(sha256.New, []byte(c.apiKey))
	mac.Write([]byte(payload))

	return fmt.Sprintf("%d:%d:%s", deadline, c.accountIndex, hex.EncodeToString(mac.Sum(nil)))
}

// signTxInfo подписывает каноничный tx_info тем же ключом.
func (c *Client) signTxInfo(txInfo string) string {
	mac := hmac.New(sha256.New, []byte(c.apiKey))
	mac.Write([]byte(txInfo))
	return hex.EncodeToString(mac.Sum(nil))
}
