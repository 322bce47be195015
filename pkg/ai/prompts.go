package ai

// LabelExpansionPrompt asks for the expanded form of ontology labels.
// Arguments: the root label, then the labels as a JSON array.
const LabelExpansionPrompt = `
# Task Context
You are an expert on the Computer Science Ontology (CSO). You will be given a list of topic labels taken from the ontology. Some of them are abbreviations.

# Detailed Task Description & Rules
- For every label return its expanded (long) form in the context of computer science.
- If a label is an abbreviation, return the full name (e.g. "lstm" -> "long short term memory").
- If a label is already in its long form, return it unchanged.
- If you do not know the expanded form or the label is not a valid topic, return "unknown".
- Never return "%s": it is the root of the ontology. Use a more specific child topic instead.
- Return exactly one entry per input label, in the same order, and repeat the original label verbatim.

# Labels
` + "```%s```" + `

# Immediate Task Description or Request
Return a JSON object {"items": [{"label": "<original label>", "expanded_label": "<expanded label>"}]}.
`

// FrequentItemsetPrompt asks the model to run an Apriori style analysis.
// Arguments: transactions JSON, total papers, min support count, min
// confidence, max itemset size.
const FrequentItemsetPrompt = `
# Task Context
You are a data analyst running an Apriori-like algorithm over transactions of paper topics.

# Background Data
Transactions (JSON): %s

Parameters:
- total_papers=%d
- min_support_count=%d
- min_confidence=%.2f
- max_itemset_size=%d

# Detailed Task Description & Rules
- Each transaction is {"paper_id": "...", "topics": ["topic a", "topic b", ...]}.
- Compute frequent itemsets of size 1..max_itemset_size whose support_count is at least min_support_count.
- Consider every combination of topics present in the transactions.
- Use the topic strings exactly as given; they are already normalized.
- support_count is the number of papers containing all items of the set; support = support_count / total_papers.
- Derive association rules A -> B with confidence >= min_confidence. A and B must both be non-empty and must not share items.

# Immediate Task Description or Request
Return JSON with the shape:
{"frequent_itemsets": [{"items": [...], "support_count": 3, "support": 0.2}], "rules": [{"antecedent": [...], "consequent": [...], "support": 0.15, "confidence": 0.7}]}
`

// CombinationPrompt asks for every combination of a paper's topics.
// Arguments: paper id, topics JSON, max k, paper id.
const CombinationPrompt = `
# Task Context
You generate combinations of topics precisely and completely.

# Background Data
paper_id=%s
topics=%s
max_k=%d

# Detailed Task Description & Rules
- Return every combination of size 1..max_k of the given topics. None may be missing.
- Do not add items that are not in topics.
- Do not repeat a combination.

# Immediate Task Description or Request
Return JSON exactly in the shape {"paper_id": "%s", "combos": [["item1"], ["item2"], ["item1", "item2"]]}.
`

// TopicMatchPrompt asks for the best ontology topic for a term.
// Arguments: term, document context, candidate topics, term.
const TopicMatchPrompt = `
# Task Context
You are an expert on the Computer Science Ontology. Match the term below to the most suitable CSO topic.

TERM: "%s"

# Background Data
DOCUMENT CONTEXT:
%s

CANDIDATE CSO TOPICS:
%s

# Detailed Task Description & Rules
1. Prefer evidence from the title and abstract of the document.
2. Consider the research domain and the methods mentioned.
3. Order of preference:
   a. direct match with a CSO topic
   b. standard CS abbreviation (e.g. "lstm" -> "long short term memory")
   c. a concept relevant to the research context
   d. a synonym within the same domain
- For generic terms such as "model" choose the kind of model the context implies.
- Do not generalize without strong support from the context.
- Only answer with one of the candidate topics.

CONFIDENCE SCORE:
1.0 = direct match or standard abbreviation
0.95 = concept stated explicitly in the abstract
0.9 = synonym in the right context
< 0.9 = answer "None"

# Immediate Task Description or Request
Return JSON: {"term": "%s", "matched_topic": "<topic or None>", "confidence": <0.0-1.0>, "reason": "<reason referring to the document>"}
`
