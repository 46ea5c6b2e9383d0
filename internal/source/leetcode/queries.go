package leetcode

const questionDetailQuery = `query getQuestionDetail($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    questionFrontendId
    questionTitle
    questionTitleSlug
    content
    difficulty
    topicTags {
      name
      slug
    }
  }
}`

const questionNoteQuery = `query QuestionNote($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    solution {
      id
      content
      canSeeDetail
      paidOnly
    }
  }
}`

const submissionListQuery = `query Submissions($offset: Int!, $limit: Int!, $lastKey: String, $questionSlug: String!) {
  submissionList(offset: $offset, limit: $limit, lastKey: $lastKey, questionSlug: $questionSlug) {
    lastKey
    hasNext
    submissions {
      id
      statusDisplay
      lang
      timestamp
      isPending
    }
  }
}`

const submissionDetailsQuery = `query submissionDetails($submissionId: Int!) {
  submissionDetails(submissionId: $submissionId) {
    code
    timestamp
    lang {
      name
      verboseName
    }
  }
}`
