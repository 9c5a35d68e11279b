package namematch

// nicknames maps common English nicknames to their canonical given name.
// Hand-curated; compared after Normalize.
var nicknames = map[string]string{
	"abby":   "abigail",
	"al":     "albert",
	"alex":   "alexander",
	"andy":   "andrew",
	"becky":  "rebecca",
	"ben":    "benjamin",
	"beth":   "elizabeth",
	"betty":  "elizabeth",
	"bill":   "william",
	"bob":    "robert",
	"bobby":  "robert",
	"cathy":  "catherine",
	"chris":  "christopher",
	"chuck":  "charles",
	"cindy":  "cynthia",
	"dan":    "daniel",
	"danny":  "daniel",
	"dave":   "david",
	"dick":   "richard",
	"drew":   "andrew",
	"ed":     "edward",
	"eddie":  "edward",
	"fred":   "frederick",
	"gene":   "eugene",
	"greg":   "gregory",
	"hank":   "henry",
	"harry":  "henry",
	"jack":   "john",
	"jamie":  "james",
	"jeff":   "jeffrey",
	"jen":    "jennifer",
	"jenny":  "jennifer",
	"jerry":  "gerald",
	"jim":    "james",
	"jimmy":  "james",
	"joe":    "joseph",
	"joey":   "joseph",
	"josh":   "joshua",
	"kate":   "katherine",
	"kathy":  "katherine",
	"katie":  "katherine",
	"larry":  "lawrence",
	"liz":    "elizabeth",
	"maggie": "margaret",
	"mandy":  "amanda",
	"matt":   "matthew",
	"meg":    "margaret",
	"mike":   "michael",
	"nate":   "nathan",
	"nick":   "nicholas",
	"pat":    "patrick",
	"peggy":  "margaret",
	"ray":    "raymond",
	"rick":   "richard",
	"rob":    "robert",
	"ron":    "ronald",
	"sam":    "samuel",
	"steve":  "steven",
	"sue":    "susan",
	"ted":    "theodore",
	"tom":    "thomas",
	"tommy":  "thomas",
	"tony":   "anthony",
	"tricia": "patricia",
	"vicky":  "victoria",
	"will":   "william",
	"zach":   "zachary",
}

// canonical returns the canonical form of a (normalized) name part, or the
// part itself when no nickname entry exists.
func canonical(part string) string {
	if full, ok := nicknames[part]; ok {
		return full
	}
	return part
}
