package dynamodb

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// sortableTimeLayout is RFC 3339 with a fixed-width fraction, so string comparison on
// created_at agrees with time order. The default decoder still parses it as RFC 3339.
const sortableTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func timeAV(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(sortableTimeLayout)}
}

// setTimes overwrites the named time attributes of item with their sortable form.
func setTimes(item map[string]types.AttributeValue, times map[string]time.Time) {
	for name, t := range times {
		item[name] = timeAV(t)
	}
}
