package dynamo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"trip-planner-api/internal/models"
)

// idList is a list of IDs. Older items hold the IDs as strings, so both
// number and string elements decode.
type idList []int64

// MarshalDynamoDBAttributeValue always writes a list of numbers, never NULL
func (l idList) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	values := make([]types.AttributeValue, 0, len(l))
	for _, id := range l {
		values = append(values, numberValue(id))
	}
	return &types.AttributeValueMemberL{Value: values}, nil
}

// UnmarshalDynamoDBAttributeValue accepts lists and sets of numbers or numeric strings
func (l *idList) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	var raw []string
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		*l = idList{}
		return nil
	case *types.AttributeValueMemberL:
		out := make(idList, 0, len(v.Value))
		for i, elem := range v.Value {
			id, ok := parseID(elem)
			if !ok {
				return fmt.Errorf("list element %d is not an id", i)
			}
			out = append(out, id)
		}
		*l = out
		return nil
	case *types.AttributeValueMemberNS:
		raw = v.Value
	case *types.AttributeValueMemberSS:
		raw = v.Value
	default:
		return fmt.Errorf("unsupported id list attribute %T", av)
	}

	out := make(idList, 0, len(raw))
	for _, s := range raw {
		id, err := models.ParseID(s)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", s, err)
		}
		out = append(out, id)
	}
	*l = out
	return nil
}

// parseID reads an ID held as a number or a numeric string
func parseID(av types.AttributeValue) (int64, bool) {
	s, ok := elementString(av)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil
}

// elementString returns the textual form of an N or S list element
func elementString(av types.AttributeValue) (string, bool) {
	switch v := av.(type) {
	case *types.AttributeValueMemberN:
		return v.Value, true
	case *types.AttributeValueMemberS:
		return v.Value, true
	default:
		return "", false
	}
}

// listElements returns the raw elements of a list attribute
func listElements(av types.AttributeValue) []types.AttributeValue {
	if l, ok := av.(*types.AttributeValueMemberL); ok {
		return l.Value
	}
	return nil
}

type userItem struct {
	UserID           int64  `dynamodbav:"user_id"`
	Email            string `dynamodbav:"email"`
	Password         string `dynamodbav:"password"`
	AwaitingApproval idList `dynamodbav:"awaiting_approval"`
	Approved         idList `dynamodbav:"approved"`
}

func newUserItem(u *models.User) *userItem {
	return &userItem{
		UserID:           u.UserID,
		Email:            u.Email,
		Password:         u.PasswordHash,
		AwaitingApproval: idList(u.AwaitingApproval),
		Approved:         idList(u.Approved),
	}
}

func (i *userItem) toModel() *models.User {
	return &models.User{
		UserID:           i.UserID,
		Email:            i.Email,
		PasswordHash:     i.Password,
		AwaitingApproval: orEmpty(i.AwaitingApproval),
		Approved:         orEmpty(i.Approved),
	}
}

type tripItem struct {
	TripID           int64  `dynamodbav:"trip_id"`
	AdminID          int64  `dynamodbav:"admin_id"`
	StartDate        int64  `dynamodbav:"start_date"`
	EndDate          int64  `dynamodbav:"end_date"`
	Location         string `dynamodbav:"location"`
	Title            string `dynamodbav:"title"`
	Description      string `dynamodbav:"description"`
	AwaitingApproval idList `dynamodbav:"awaiting_approval"`
	Approved         idList `dynamodbav:"approved"`
}

func newTripItem(t *models.Trip) *tripItem {
	return &tripItem{
		TripID:           t.TripID,
		AdminID:          t.AdminID,
		StartDate:        t.StartDate,
		EndDate:          t.EndDate,
		Location:         t.Location,
		Title:            t.Title,
		Description:      t.Description,
		AwaitingApproval: idList(t.AwaitingApproval),
		Approved:         idList(t.Approved),
	}
}

func (i *tripItem) toModel() *models.Trip {
	return &models.Trip{
		TripID:           i.TripID,
		AdminID:          i.AdminID,
		StartDate:        i.StartDate,
		EndDate:          i.EndDate,
		Location:         i.Location,
		Title:            i.Title,
		Description:      i.Description,
		AwaitingApproval: orEmpty(i.AwaitingApproval),
		Approved:         orEmpty(i.Approved),
	}
}

func orEmpty(l idList) []int64 {
	if l == nil {
		return []int64{}
	}
	return []int64(l)
}
